package sqlstore

import "github.com/goliatone/go-crmquery/core"

var (
	_ core.ProfileStore       = (*ProfileStore)(nil)
	_ core.ProfileStore       = (*CachedProfileStore)(nil)
	_ core.ResolutionRecorder = (*ResolutionStore)(nil)
)
