package data

import "github.com/target/dispatch-api/internal/core"

var (
	_ core.JobRepository           = (*JobRepo)(nil)
	_ core.JobUpdateRepository     = (*JobUpdateRepo)(nil)
	_ core.SubcontractorRepository = (*SubcontractorRepo)(nil)
	_ core.ProfileRepository       = (*ProfileRepo)(nil)
	_ core.InvitationRepository    = (*InvitationRepo)(nil)
	_ core.CacheRepository         = (*RedisCacheRepo)(nil)
)
