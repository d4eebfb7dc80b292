package models

// ProcessingJob is the ephemeral queue-owned unit of work. The queue owns
// the message until it is deleted; a worker only holds a visibility lease,
// so the same job may be delivered more than once.
type ProcessingJob struct {
	JobID           string   `json:"jobId"`
	TenantID        string   `json:"tenantId"`
	DocumentID      string   `json:"documentId"`
	Vertical        Vertical `json:"vertical"`
	StorageKey      string   `json:"storageKey"`
	SizeBytes       int64    `json:"sizeBytes"`
	ReceiptHandle   string   `json:"-"`
	DeliveryAttempt int      `json:"deliveryAttempt"`
}
