package types

import "strings"

// ============================================================================
//                              协议版本
// ============================================================================

// ProtocolVersion 当前协议版本
//
// 版本号进入域分隔标签，升级版本会使跨版本重放的签名失效。
const ProtocolVersion = "1.1"

// Domain 签名域
type Domain string

const (
	// DomainMarker Exit Marker 签名域
	DomainMarker Domain = "exit-marker"
	// DomainDispute 争议裁决签名域
	DomainDispute Domain = "exit-marker-dispute"
	// DomainKeyEvent 密钥事件签名域
	DomainKeyEvent Domain = "exit-marker-kel"
)

// Tag 返回指定版本的域分隔标签，例如 "exit-marker-v1.1:"
func (d Domain) Tag(version string) string {
	if version == "" {
		version = ProtocolVersion
	}
	version = strings.TrimPrefix(version, "v")
	return string(d) + "-v" + version + ":"
}

// 当前版本的域分隔标签
var (
	// MarkerDomainTag Exit Marker 域标签
	MarkerDomainTag = DomainMarker.Tag(ProtocolVersion)
	// DisputeDomainTag 争议裁决域标签
	DisputeDomainTag = DomainDispute.Tag(ProtocolVersion)
	// KeyEventDomainTag 密钥事件域标签
	KeyEventDomainTag = DomainKeyEvent.Tag(ProtocolVersion)
)
