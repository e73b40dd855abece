// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LingoPal Contributors

package errutil_test

import (
	"testing"

	"github.com/samber/oops"

	"github.com/lingopal/lingopal/pkg/errutil"
)

func TestAssertErrorCode_MatchingCode(t *testing.T) {
	err := oops.Code("AUTH_NOT_VERIFIED").Errorf("account not verified")
	errutil.AssertErrorCode(t, err, "AUTH_NOT_VERIFIED")
}

func TestAssertErrorContext_MatchingKeyValue(t *testing.T) {
	err := oops.With("reason", "session expired").Errorf("unauthenticated")
	errutil.AssertErrorContext(t, err, "reason", "session expired")
}
