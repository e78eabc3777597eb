package output

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/chrisdamba/slawatch/internal/cloudwriter"
	"github.com/chrisdamba/slawatch/internal/logging"
	"github.com/chrisdamba/slawatch/internal/models"
)

// ParquetOutput writes flattened snapshot rows to one parquet file per topic
// and hour, either on local disk or to a bucket when a factory is set.
type ParquetOutput struct {
	ctx      context.Context
	basePath string
	folder   string
	bucket   string
	factory  cloudwriter.CloudWriterFactory

	mu      sync.Mutex
	writers map[string]*writer.ParquetWriter
	files   map[string]source.ParquetFile
}

func NewParquetOutput(ctx context.Context, basePath, folder string, factory cloudwriter.CloudWriterFactory, bucket string) *ParquetOutput {
	p := &ParquetOutput{
		ctx:      ctx,
		basePath: basePath,
		folder:   folder,
		bucket:   bucket,
		factory:  factory,
		writers:  make(map[string]*writer.ParquetWriter),
		files:    make(map[string]source.ParquetFile),
	}
	if factory == nil {
		p.cleanup()
	}
	return p
}

func (p *ParquetOutput) WriteMessage(topic string, msg []byte) error {
	update, err := decodeUpdate(msg)
	if err != nil {
		return err
	}

	partition := partitionPath(update.PublishedAt)
	key := topic + "/" + partition

	p.mu.Lock()
	defer p.mu.Unlock()

	pw, ok := p.writers[key]
	if !ok {
		pw, err = p.createWriter(key, topic, partition)
		if err != nil {
			return err
		}
	}

	for _, row := range update.Rows() {
		if err := pw.Write(row); err != nil {
			return fmt.Errorf("failed to write snapshot row: %w", err)
		}
	}
	return nil
}

func (p *ParquetOutput) createWriter(key, topic, partition string) (*writer.ParquetWriter, error) {
	var fw source.ParquetFile
	if p.factory != nil {
		objectPath := filepath.ToSlash(filepath.Join(p.folder, topic, partition, "data.parquet"))
		cw, err := p.factory.NewWriter(p.ctx, p.bucket, objectPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create cloud file writer: %w", err)
		}
		fw = NewCloudParquetFile(cw)
	} else {
		fullPath := filepath.Join(p.basePath, p.folder, topic, partition)
		if err := os.MkdirAll(fullPath, os.ModePerm); err != nil {
			return nil, err
		}
		var err error
		fw, err = local.NewLocalFileWriter(filepath.Join(fullPath, "data.parquet"))
		if err != nil {
			return nil, fmt.Errorf("failed to create local file writer: %w", err)
		}
	}

	pw, err := writer.NewParquetWriter(fw, new(models.SnapshotRow), 4)
	if err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to create ParquetWriter: %w", err)
	}
	p.writers[key] = pw
	p.files[key] = fw
	return pw, nil
}

// cleanup removes parquet files left over from a previous run.
func (p *ParquetOutput) cleanup() {
	root := filepath.Join(p.basePath, p.folder)
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".parquet" {
			return os.Remove(path)
		}
		return nil
	})
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn().Err(err).Str("path", root).Msg("Failed to clean up parquet files")
	}
}

func (p *ParquetOutput) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for key, pw := range p.writers {
		if err := pw.WriteStop(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		if err := p.files[key].Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		delete(p.writers, key)
		delete(p.files, key)
	}
	return errors.Join(errs...)
}

// CloudParquetFile adapts a CloudWriter to the write-only subset of
// source.ParquetFile the parquet writer needs.
type CloudParquetFile struct {
	cloudWriter cloudwriter.CloudWriter
	offset      int64
}

func NewCloudParquetFile(cw cloudwriter.CloudWriter) *CloudParquetFile {
	return &CloudParquetFile{cloudWriter: cw}
}

// Open and Create return the receiver; the object is created on first write.
func (c *CloudParquetFile) Open(string) (source.ParquetFile, error)   { return c, nil }
func (c *CloudParquetFile) Create(string) (source.ParquetFile, error) { return c, nil }

func (c *CloudParquetFile) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		c.offset = offset
	case io.SeekCurrent:
		c.offset += offset
	default:
		return 0, errors.New("seek from end not supported for cloud storage")
	}
	return c.offset, nil
}

func (c *CloudParquetFile) Read([]byte) (int, error) {
	return 0, errors.New("read not supported for cloud storage")
}

func (c *CloudParquetFile) Write(p []byte) (int, error) {
	n, err := c.cloudWriter.Write(p)
	c.offset += int64(n)
	return n, err
}

func (c *CloudParquetFile) Close() error {
	return c.cloudWriter.Close()
}
