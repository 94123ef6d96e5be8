package storage

import "flip-analyzer/models"

// ReportWriter is the interface any result output backend must satisfy.
type ReportWriter interface {
	Write(scores []models.AddressScore) error
	Close() error
}
