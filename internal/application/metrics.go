package application

import "expvar"

// Counters published under /debug/vars.
var (
	adsCreated          = expvar.NewInt("advertisements_created")
	adsModerated        = expvar.NewInt("advertisements_moderated")
	adsDeleted          = expvar.NewInt("advertisements_deleted")
	advisoriesPublished = expvar.NewInt("advisories_published")
	advisoriesFailed    = expvar.NewInt("advisories_failed")
	advisoriesDropped   = expvar.NewInt("advisories_dropped")
)
