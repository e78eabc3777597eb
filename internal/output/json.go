package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// JSONOutput appends one update per line to topic/hour partitioned files.
type JSONOutput struct {
	basePath string
	folder   string

	mu    sync.Mutex
	files map[string]*os.File
}

func NewJSONOutput(basePath, folder string) *JSONOutput {
	return &JSONOutput{
		basePath: basePath,
		folder:   folder,
		files:    make(map[string]*os.File),
	}
}

func (j *JSONOutput) WriteMessage(topic string, msg []byte) error {
	update, err := decodeUpdate(msg)
	if err != nil {
		return err
	}

	partition := partitionPath(update.PublishedAt)
	fullPath := filepath.Join(j.basePath, j.folder, topic, partition)
	fileKey := topic + "/" + partition

	j.mu.Lock()
	defer j.mu.Unlock()

	file, ok := j.files[fileKey]
	if !ok {
		if err := os.MkdirAll(fullPath, os.ModePerm); err != nil {
			return err
		}
		file, err = os.OpenFile(filepath.Join(fullPath, "data.json"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open json partition: %w", err)
		}
		j.files[fileKey] = file
	}

	if _, err := file.Write(append(msg, '\n')); err != nil {
		return fmt.Errorf("failed to append to %s: %w", file.Name(), err)
	}
	return nil
}

func (j *JSONOutput) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	var errs []error
	for key, file := range j.files {
		errs = append(errs, file.Close())
		delete(j.files, key)
	}
	return errors.Join(errs...)
}
