package zonestore

import (
	"crypto/md5"
	"encoding/hex"
	"path/filepath"
)

// PathFor computes the sharded on-disk path for domain under root:
// <root>/<h[0:2]>/<h[2:4]>/<domain>.json, where h = lower_hex(md5(domain)).
func PathFor(root, domain string) string {
	sum := md5.Sum([]byte(domain))
	h := hex.EncodeToString(sum[:])
	return filepath.Join(root, h[0:2], h[2:4], domain+".json")
}
