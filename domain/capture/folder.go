package capture

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// FolderDevicePrefix prefixes ids of devices that replay images from disk.
const FolderDevicePrefix = "dir:"

// FolderDevice replays the JPEG/PNG files of a directory in name order,
// looping at the end. Used for demos and as a deterministic test camera.
type FolderDevice struct {
	dir   string
	mu    sync.Mutex
	files []string
	next  int
	open  bool
}

// NewFolderDevice returns a replay device over dir.
func NewFolderDevice(dir string) *FolderDevice { return &FolderDevice{dir: dir} }

func (d *FolderDevice) Info() DeviceInfo {
	return DeviceInfo{ID: FolderDevicePrefix + d.dir, Label: "Replay " + filepath.Base(d.dir)}
}

func (d *FolderDevice) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			files = append(files, filepath.Join(d.dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("no images in %s: %w", d.dir, os.ErrNotExist)
	}
	sort.Strings(files)
	d.mu.Lock()
	d.files, d.next, d.open = files, 0, true
	d.mu.Unlock()
	return nil
}

func (d *FolderDevice) Grab(ctx context.Context) (image.Image, error) {
	d.mu.Lock()
	if !d.open {
		d.mu.Unlock()
		return nil, nil
	}
	path := d.files[d.next]
	d.next = (d.next + 1) % len(d.files)
	d.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

func (d *FolderDevice) Close() error {
	d.mu.Lock()
	d.open = false
	d.mu.Unlock()
	return nil
}
