package spend

import (
	"log"

	"github.com/gdiab/showscribe/internal/config"
)

// NewStore selects a spend store based on configuration. Without an
// external store the cap is enforced per process only.
func NewStore(cfg *config.Config) Store {
	if cfg.UpstashURL != "" && cfg.UpstashToken != "" {
		log.Printf("[Spend] Using Upstash Redis counter store")
		return NewUpstashStore(cfg.UpstashURL, cfg.UpstashToken)
	}

	log.Printf("[Spend] UPSTASH_REDIS_REST_URL not set, using in-memory counter (per-instance cap only)")
	return NewMemoryStore()
}
