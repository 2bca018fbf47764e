package service

import (
	"time"

	"gestistock/config"

	"github.com/shopspring/decimal"
)

// Policy gathers the business rules that are configuration rather than code
type Policy struct {
	VIPThreshold            decimal.Decimal
	DemoteVIPOnCancel       bool
	ReverseSupplierOnDelete bool
	StatsCacheTTL           time.Duration
	IdempotencyTTL          time.Duration
}

// DefaultPolicy keeps VIP status sticky and leaves supplier totals untouched on movement deletion
func DefaultPolicy() Policy {
	return Policy{
		VIPThreshold:   config.DefaultVIPThreshold,
		StatsCacheTTL:  30 * time.Second,
		IdempotencyTTL: 24 * time.Hour,
	}
}

// PolicyFromConfig builds a Policy from the business section of the configuration
func PolicyFromConfig(cfg config.BusinessConfig) Policy {
	return Policy{
		VIPThreshold:            cfg.VIPThreshold,
		DemoteVIPOnCancel:       cfg.DemoteVIPOnCancel,
		ReverseSupplierOnDelete: cfg.ReverseSupplierOnDelete,
		StatsCacheTTL:           cfg.StatsCacheTTL,
		IdempotencyTTL:          cfg.IdempotencyTTL,
	}
}
