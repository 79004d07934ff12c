package files

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/seqforge/taskkit/internal/bridge"
	"github.com/seqforge/taskkit/internal/logging"
	"github.com/seqforge/taskkit/internal/metainfo"
	"github.com/seqforge/taskkit/internal/task"
)

var (
	// ErrUnknownKind reports a file kind with no storage declaration.
	ErrUnknownKind = errors.New("unknown file kind")
	// ErrUndeclaredKey reports a storage key the file's kind does not declare.
	ErrUndeclaredKey = errors.New("storage key not declared for file kind")
	// ErrDuplicateBaseName reports two unit files sharing a base name.
	ErrDuplicateBaseName = errors.New("storing files with the same base name is prohibited")
	// ErrEmptyUnit reports a storage unit with no files.
	ErrEmptyUnit = errors.New("storage unit has no files")
	// ErrMissingFiles reports unit paths absent from disk.
	ErrMissingFiles = errors.New("storage unit files do not exist")
	// ErrNotReference reports a metainfo value that is not a file reference.
	ErrNotReference = errors.New("metainfo value is not a file reference")
)

// File is a task's handle on one platform file object. All operations go
// through the bridge; the handle itself holds no data.
type File struct {
	ref  bridge.ObjectRef
	kind Kind
	br   *bridge.Bridge
	log  *logging.TaskLog
	wd   *task.WorkDir

	storageKeys map[string]struct{}
}

// New builds a handle for the object id with the declared kind.
func New(id int64, kind Kind, br *bridge.Bridge, log *logging.TaskLog, wd *task.WorkDir) (*File, error) {
	keys, err := kind.StorageKeys()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.New()
	}
	declared := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		declared[k] = struct{}{}
	}
	return &File{
		ref:         bridge.ObjectRef{ID: id, Kind: string(kind)},
		kind:        kind,
		br:          br,
		log:         log,
		wd:          wd,
		storageKeys: declared,
	}, nil
}

func (f *File) ID() int64  { return f.ref.ID }
func (f *File) Kind() Kind { return f.kind }

// WorkDir returns the task working directory the file stages data through.
func (f *File) WorkDir() *task.WorkDir { return f.wd }

func (f *File) checkStorageKey(key string) error {
	if _, ok := f.storageKeys[key]; !ok {
		return fmt.Errorf("%w: kind %q, key %q", ErrUndeclaredKey, f.kind, key)
	}
	return nil
}

// Metainfo fetches the file's current metainfo.
func (f *File) Metainfo(ctx context.Context) (metainfo.Metainfo, error) {
	result, err := f.br.Invoke(ctx, f.ref, "getMetainfo")
	if err != nil {
		return nil, err
	}
	var payload struct {
		Data metainfo.Metainfo `json:"data"`
	}
	if err := json.Unmarshal(result, &payload); err != nil {
		return nil, fmt.Errorf("decode metainfo: %w", err)
	}
	return payload.Data, nil
}

func (f *File) invokeWithValue(ctx context.Context, method, key string, value metainfo.Value) error {
	encoded, err := metainfo.EncodeValue(value)
	if err != nil {
		return fmt.Errorf("encode value for %s: %w", key, err)
	}
	_, err = f.br.Invoke(ctx, f.ref, method, key, json.RawMessage(encoded))
	return err
}

// AddMetainfoValue appends a value under key.
func (f *File) AddMetainfoValue(ctx context.Context, key string, value metainfo.Value) error {
	return f.invokeWithValue(ctx, "addMetainfoValue", key, value)
}

// ReplaceMetainfoValue replaces all values under key with one value.
func (f *File) ReplaceMetainfoValue(ctx context.Context, key string, value metainfo.Value) error {
	return f.invokeWithValue(ctx, "replaceMetainfoValue", key, value)
}

// RemoveMetainfoValue drops every value under key.
func (f *File) RemoveMetainfoValue(ctx context.Context, key string) error {
	_, err := f.br.Invoke(ctx, f.ref, "removeMetainfoValue", key)
	return err
}

// AddWarning records a non-fatal initialization warning on the file.
func (f *File) AddWarning(ctx context.Context, msg string) error {
	return f.AddMetainfoValue(ctx, metainfo.KeyInitWarning, metainfo.StringValue{Value: msg})
}

// SetProgressStage publishes the current stage. A percent in [0,100] is
// appended to the stage name; pass a negative percent to publish the name
// alone.
func (f *File) SetProgressStage(ctx context.Context, stage string, percent int) error {
	if percent >= 0 {
		stage = fmt.Sprintf("%s %3d%%", stage, percent)
	}
	return f.ReplaceMetainfoValue(ctx, metainfo.KeyProgressInfo, metainfo.StringValue{Value: stage})
}

// Get stages the data stored under key into the working directory and
// returns the staged units. formatPattern, when non-nil, asks the backend to
// convert during staging.
func (f *File) Get(ctx context.Context, key string, formatPattern []map[string][]string) ([]StorageUnit, error) {
	if err := f.checkStorageKey(key); err != nil {
		return nil, err
	}
	f.log.Infof("Getting file for key %q", key)
	wire, err := f.br.Get(ctx, f.ref, key, f.wd.Root(), formatPattern)
	if err != nil {
		return nil, err
	}
	return unitsFromWire(wire), nil
}

// Put stores the units under key. Every unit is validated first, and when
// the file carries the checksum mark the md5 of the stored content is
// recorded alongside.
func (f *File) Put(ctx context.Context, key string, units ...StorageUnit) error {
	if err := f.checkStorageKey(key); err != nil {
		return err
	}
	wire := make([]bridge.StorageUnit, 0, len(units))
	for _, u := range units {
		if err := u.Validate(); err != nil {
			return err
		}
		// Storable paths must live inside the task directory.
		for _, path := range u.Files {
			if _, err := f.wd.Resolve(path); err != nil {
				return err
			}
		}
		wire = append(wire, u.wire())
	}
	if err := f.addChecksumConditionally(ctx, key, units); err != nil {
		return err
	}
	f.log.Infof("Putting file for key %q", key)
	return f.br.Put(ctx, f.ref, key, wire)
}

// SetFormat records a format for units already stored under key.
func (f *File) SetFormat(ctx context.Context, key string, units ...StorageUnit) error {
	if err := f.checkStorageKey(key); err != nil {
		return err
	}
	wire := make([]bridge.StorageUnit, 0, len(units))
	for _, u := range units {
		wire = append(wire, u.wire())
	}
	return f.br.SetFormat(ctx, f.ref, key, wire)
}

func (f *File) addChecksumConditionally(ctx context.Context, key string, units []StorageUnit) error {
	meta, err := f.Metainfo(ctx)
	if err != nil {
		return err
	}
	if !meta.Has(metainfo.KeyChecksumMark) {
		return nil
	}
	var paths []string
	for _, u := range units {
		paths = append(paths, u.Files...)
	}
	sum, err := md5sum(paths)
	if err != nil {
		return fmt.Errorf("checksum for %s: %w", key, err)
	}
	return f.ReplaceMetainfoValue(ctx, metainfo.ChecksumKey(key), metainfo.StringValue{Value: sum})
}

// Download fetches every external link stored under linksKey into the
// working directory and, unless told otherwise, puts the result to storage
// under storageKey. With fold set, all links land in one storage unit, so
// their formats must agree. Link URLs are validated before the backend is
// asked to do anything.
func (f *File) Download(ctx context.Context, storageKey, linksKey string, fold, putToStorage bool) ([]string, error) {
	if putToStorage {
		if err := f.checkStorageKey(storageKey); err != nil {
			return nil, err
		}
	}
	meta, err := f.Metainfo(ctx)
	if err != nil {
		return nil, err
	}
	for _, v := range meta.List(linksKey) {
		link, ok := v.(metainfo.ExternalLink)
		if !ok {
			return nil, fmt.Errorf("metainfo value at %s is %s, not an external link", linksKey, v.Kind())
		}
		if err := metainfo.ValidateLinkURL(link.URL); err != nil {
			return nil, fmt.Errorf("%s: %w", linksKey, err)
		}
	}
	f.log.Infof("Downloading file from key %q to %q", linksKey, storageKey)
	return f.br.Download(ctx, f.ref, bridge.DownloadRequest{
		StorageKey:   storageKey,
		LinksKey:     linksKey,
		Fold:         fold,
		PutToStorage: putToStorage,
		WorkingDir:   f.wd.Root(),
	})
}

// ResolveReference follows the file reference stored under key and returns a
// handle on the referenced file with the given kind.
func (f *File) ResolveReference(ctx context.Context, key string, kind Kind) (*File, error) {
	meta, err := f.Metainfo(ctx)
	if err != nil {
		return nil, err
	}
	ref, ok := meta.Get(key).(metainfo.FileReference)
	if !ok {
		return nil, fmt.Errorf("%w: key %q", ErrNotReference, key)
	}
	return f.resolve(ctx, key, ref, kind)
}

// ResolveReferenceList follows every file reference stored under key.
func (f *File) ResolveReferenceList(ctx context.Context, key string, kind Kind) ([]*File, error) {
	meta, err := f.Metainfo(ctx)
	if err != nil {
		return nil, err
	}
	var out []*File
	for _, v := range meta.List(key) {
		ref, ok := v.(metainfo.FileReference)
		if !ok {
			return nil, fmt.Errorf("%w: key %q", ErrNotReference, key)
		}
		resolved, err := f.resolve(ctx, key, ref, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, resolved)
	}
	return out, nil
}

func (f *File) resolve(ctx context.Context, key string, ref metainfo.FileReference, kind Kind) (*File, error) {
	result, err := f.br.Invoke(ctx, f.ref, "resolveReference", ref.Accession)
	if err != nil {
		return nil, err
	}
	var resolved struct {
		ID int64 `json:"object_id"`
	}
	if err := json.Unmarshal(result, &resolved); err != nil {
		return nil, fmt.Errorf("decode resolved reference: %w", err)
	}
	if resolved.ID == 0 {
		return nil, fmt.Errorf("cannot resolve reference %q, check the task owner can access this file", key)
	}
	return New(resolved.ID, kind, f.br, f.log, f.wd)
}

// SendIndex submits index records for the file.
func (f *File) SendIndex(ctx context.Context, records []map[string]any) error {
	return f.br.SendIndex(ctx, f.ref, records)
}
