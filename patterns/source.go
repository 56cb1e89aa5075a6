// Copyright 2026 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package patterns

import (
	"context"
	"time"

	"go.chromium.org/luci/common/errors"

	"testreliability/results"
)

// NotFoundTag marks errors for organizations or projects that do not
// exist. Such errors surface to the caller and are not retried.
var NotFoundTag = errors.BoolTag{
	Key: errors.NewTagKey("the referenced organization or project does not exist"),
}

// DataSource supplies the detector with organization membership and
// historical records. Implementations are owned by the persistence
// layer; the engine only consumes this read path.
type DataSource interface {
	// Projects returns the repository/project identifiers belonging to
	// the organization. An unknown organization yields a
	// NotFoundTag-tagged error.
	Projects(ctx context.Context, orgID string) ([]string, error)
	// Records returns the project's test-result records no older than
	// since. An individual project's failure degrades the analysis
	// (the project is excluded) rather than aborting it.
	Records(ctx context.Context, project string, since time.Time) ([]results.TestResultRecord, error)
}
