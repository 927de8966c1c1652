package storage

const (
	keyIdempotency  = "idem:%s"         // key (global: ownership is checked from the record)
	keyRateLimit    = "ratelimit:%d:%s" // accountID, action
	keyRoundHistory = "round:history"
)
