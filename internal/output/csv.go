package output

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/chrisdamba/slawatch/internal/models"
)

// CSVOutput flattens each update into one row per summary entry.
type CSVOutput struct {
	basePath string
	folder   string

	mu      sync.Mutex
	writers map[string]*csv.Writer
	files   map[string]*os.File
}

func NewCSVOutput(basePath, folder string) *CSVOutput {
	return &CSVOutput{
		basePath: basePath,
		folder:   folder,
		writers:  make(map[string]*csv.Writer),
		files:    make(map[string]*os.File),
	}
}

func (c *CSVOutput) WriteMessage(topic string, msg []byte) error {
	update, err := decodeUpdate(msg)
	if err != nil {
		return err
	}

	partition := partitionPath(update.PublishedAt)
	fullPath := filepath.Join(c.basePath, c.folder, topic, partition)
	fileKey := topic + "/" + partition

	c.mu.Lock()
	defer c.mu.Unlock()

	w, ok := c.writers[fileKey]
	if !ok {
		if err := os.MkdirAll(fullPath, os.ModePerm); err != nil {
			return err
		}
		file, err := os.Create(filepath.Join(fullPath, "data.csv"))
		if err != nil {
			return err
		}
		w = csv.NewWriter(file)
		if err := w.Write(models.SnapshotHeader); err != nil {
			file.Close()
			return err
		}
		c.writers[fileKey] = w
		c.files[fileKey] = file
	}

	for _, row := range update.Rows() {
		if err := w.Write(csvRecord(row)); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func csvRecord(r models.SnapshotRow) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return []string{
		r.UpdateID,
		r.Chart,
		r.Dimension,
		strconv.Itoa(int(r.Position)),
		r.Key,
		strconv.FormatInt(r.TotalOrders, 10),
		f(r.AvgDeliveryMinutes),
		f(r.BreachPercent),
		f(r.AvgDelayBeyondSLA),
		f(r.Min),
		f(r.Q1),
		f(r.Median),
		f(r.Q3),
		f(r.Max),
		strconv.FormatInt(r.PublishedAt, 10),
	}
}

func (c *CSVOutput) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for key, w := range c.writers {
		w.Flush()
		errs = append(errs, w.Error(), c.files[key].Close())
		delete(c.writers, key)
		delete(c.files, key)
	}
	return errors.Join(errs...)
}
