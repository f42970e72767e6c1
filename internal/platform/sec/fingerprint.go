// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint returns a short, stable digest of a credential.
// It is safe to log and to compare; the credential itself is neither.
func Fingerprint(credential string) string {
	if credential == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:8])
}
