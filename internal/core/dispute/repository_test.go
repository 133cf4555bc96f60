package dispute

import (
	"context"
	"testing"

	"github.com/dep2p/go-exitmarker/config"
	"github.com/dep2p/go-exitmarker/internal/core/storage"
	"github.com/dep2p/go-exitmarker/pkg/lib/crypto"
	"github.com/dep2p/go-exitmarker/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func newRepository(t *testing.T) *Repository {
	t.Helper()
	eng, err := storage.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })
	return NewRepository(storage.NewKVStore(eng, storage.PrefixDisputes))
}

func TestRepository_FileResolve(t *testing.T) {
	repo := newRepository(t)
	svc, _ := newService(t)
	arb := newSigner(t, crypto.AlgorithmEd25519)

	d := fileDispute(t, svc, arb.DID())
	require.NoError(t, repo.File(d))

	loaded, err := repo.Get(d.ID)
	require.NoError(t, err)
	assert.Equal(t, d, loaded)

	resolved, err := svc.Resolve(context.Background(), d, types.OutcomeUpheld, "upheld", arb)
	require.NoError(t, err)
	require.NoError(t, repo.Resolve(resolved))

	loaded, err = repo.Get(d.ID)
	require.NoError(t, err)
	assert.True(t, loaded.Resolved())
	assert.True(t, svc.VerifyResolution(loaded))

	// 存储层同样拒绝第二次裁决
	again := d.Clone()
	again.Resolution = resolved.Resolution
	assert.True(t, IsAlreadyResolved(repo.Resolve(again)))
}

func TestRepository_AppendOnly(t *testing.T) {
	repo := newRepository(t)
	svc, _ := newService(t)
	d := fileDispute(t, svc, "did:web:arbiter.example")

	require.NoError(t, repo.File(d))
	assert.True(t, storage.IsExists(repo.File(d)))
}

func TestRepository_DuplicateLeavesNoIndex(t *testing.T) {
	repo := newRepository(t)
	svc, _ := newService(t)
	d := fileDispute(t, svc, "did:web:arbiter.example")
	require.NoError(t, repo.File(d))

	// 相同 ID 指向另一张凭证：整批放弃，索引不落盘
	clash := d.Clone()
	clash.MarkerID = "urn:uuid:elsewhere"
	assert.True(t, storage.IsExists(repo.File(clash)))

	list, err := repo.ListByMarker("urn:uuid:elsewhere")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRepository_FileResolved(t *testing.T) {
	repo := newRepository(t)
	svc, _ := newService(t)
	arb := newSigner(t, crypto.AlgorithmEd25519)

	resolved, err := svc.Resolve(context.Background(), fileDispute(t, svc, arb.DID()), types.OutcomeDismissed, "", arb)
	require.NoError(t, err)
	require.NoError(t, repo.File(resolved))

	loaded, err := repo.Get(resolved.ID)
	require.NoError(t, err)
	assert.True(t, loaded.Resolved())
	assert.True(t, svc.VerifyResolution(loaded))
}

func TestRepository_ResolveUnknown(t *testing.T) {
	repo := newRepository(t)
	svc, _ := newService(t)
	arb := newSigner(t, crypto.AlgorithmEd25519)

	resolved, err := svc.Resolve(context.Background(), fileDispute(t, svc, arb.DID()), types.OutcomeUpheld, "", arb)
	require.NoError(t, err)
	assert.True(t, storage.IsNotFound(repo.Resolve(resolved)))
}

func TestRepository_ListByMarker(t *testing.T) {
	repo := newRepository(t)
	svc, _ := newService(t)

	a := fileDispute(t, svc, "did:web:arbiter.example")
	b := fileDispute(t, svc, "did:web:arbiter.example")
	other, err := svc.Create("urn:uuid:other", "reason", "did:web:arbiter.example", "did:web:filer.example")
	require.NoError(t, err)
	for _, d := range []*types.Dispute{a, b, other} {
		require.NoError(t, repo.File(d))
	}

	list, err := repo.ListByMarker(testMarkerID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	ids := []string{list[0].ID, list[1].ID}
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)
	assert.Equal(t, types.DisputeActive, AggregateStatus(types.StatusGoodStanding, list, epoch))
}

func TestRepository_GetMissing(t *testing.T) {
	_, err := newRepository(t).Get("urn:uuid:missing")
	assert.True(t, storage.IsNotFound(err))
	assert.True(t, types.IsStorageError(err))
}

func TestModule(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Storage.DataDir = t.TempDir()

	var svc *Service
	var repo *Repository
	app := fxtest.New(t,
		fx.Supply(cfg),
		storage.Module(),
		Module(),
		fx.Populate(&svc, &repo),
	)
	app.RequireStart()
	defer app.RequireStop()

	d, err := svc.Create(testMarkerID, "reason", "did:web:arbiter.example", "did:web:filer.example")
	require.NoError(t, err)
	assert.NotEmpty(t, d.ExpiresAt, "default expiry comes from config")
	require.NoError(t, repo.File(d))
}
