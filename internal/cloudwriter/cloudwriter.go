// Package cloudwriter uploads finished snapshot files to object storage.
package cloudwriter

import "context"

// CloudWriter buffers an object's bytes and uploads them on Close.
type CloudWriter interface {
	Write(data []byte) (int, error)
	Close() error
}

type CloudWriterFactory interface {
	NewWriter(ctx context.Context, bucket, objectPath string) (CloudWriter, error)
}
