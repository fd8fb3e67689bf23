// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package guestdl

import (
	goerrors "errors"
	"fmt"
	"time"

	"github.com/nativesim/go-guestdl/errors"
	"go.uber.org/zap"
)

// LoadRequest is what the syscall layer hands over when the guest asks for a
// native library.
type LoadRequest struct {
	// Path of the native library on the host. Must not be empty.
	Path string
	// Code is the library image as the guest sees it. It is never modified.
	Code []byte
	// Length is the declared size of the image, at most len(Code).
	Length uint64
	// Region is the guest memory window earmarked for the library.
	Region Region
	// Memory is the guest memory Region lives in. The segment mapper writes
	// the image through it.
	Memory GuestMemory
}

// LoadResult is the outcome of Loader.Load.
type LoadResult struct {
	Status errors.Status
	// Handle is NullHandle unless Status is errors.Success.
	Handle Handle
	// ConsumedSize is the number of bytes of Region claimed by the library,
	// a multiple of the page size never greater than Region.Size.
	ConsumedSize uint64
	Mapping      Mapping
}

// Loader loads native libraries on behalf of guest processes. The handle
// tables are owned by the callers, one per guest process, and passed to every
// call. A Loader is safe for concurrent use.
type Loader struct {
	pageSize uint64
	mapper   SegmentMapper
	native   NativeLoader
	logger   *zap.Logger
	metrics  metricsStore
}

// NewLoader returns a Loader configured with options.
func NewLoader(options ...Option) (*Loader, error) {
	config, err := newConfig(options...)
	if err != nil {
		return nil, err
	}
	return &Loader{
		pageSize: config.PageSize,
		mapper:   config.Mapper,
		native:   config.Native,
		logger:   config.Logger,
	}, nil
}

// PageSize returns the guest page size the loader accounts memory with.
func (l *Loader) PageSize() uint64 {
	return l.pageSize
}

// Stats returns a snapshot of the loader metrics.
func (l *Loader) Stats() Stats {
	return l.metrics.stats()
}

// Load admits, maps and opens the library described by req, and registers it
// in table.
//
// The guest memory budget is checked before anything else: when the page
// rounded Length does not fit in Region, errors.OutOfMemory is returned and
// neither the segment mapper nor the host loader are called. The image is then
// mapped, and only a valid image reaches the host loader. On any error, the
// result carries the failure status, a NullHandle and nothing is registered;
// releasing the region is up to the caller.
func (l *Loader) Load(table *Table, req LoadRequest) (LoadResult, error) {
	result, err := l.load(table, req)
	if err != nil {
		status := errors.StatusOf(err)
		l.metrics.failed(status)
		return LoadResult{Status: status}, err
	}
	l.metrics.loaded()
	return result, nil
}

func (l *Loader) load(table *Table, req LoadRequest) (LoadResult, error) {
	if req.Path == "" {
		return LoadResult{}, fmt.Errorf("%w: empty native library path", errors.InvalidArgument)
	}
	if table == nil {
		return LoadResult{}, fmt.Errorf("%w: nil module table", errors.InvalidArgument)
	}

	budget, err := l.admit(req.Length, req.Region)
	if err != nil {
		l.logger.Debug("guest memory admission refused",
			zap.String("path", req.Path), zap.Uint64("length", req.Length), zap.Stringer("region", req.Region), zap.Error(err))
		return LoadResult{}, err
	}

	if req.Length > uint64(len(req.Code)) {
		return LoadResult{}, fmt.Errorf("%w: declared length %d exceeds the %d bytes code buffer", errors.InvalidArgument, req.Length, len(req.Code))
	}

	start := time.Now()
	mapping, err := l.mapper.Map(req.Code[:req.Length], req.Region, req.Memory)
	l.metrics.since(phaseMap, start)
	if err != nil {
		l.logger.Debug("guest image rejected", zap.String("path", req.Path), zap.Error(err))
		return LoadResult{}, err
	}

	mapped, ok := RoundUp(mapping.Size, l.pageSize)
	if !ok || mapped > req.Region.Size {
		return LoadResult{}, fmt.Errorf("%w: mapping claims %#x bytes, region %s", errors.OutOfMemory, mapping.Size, req.Region)
	}
	mapping.Size = mapped
	consumed := max(budget, mapped)

	var native uintptr
	start = time.Now()
	err = guard("dlopen", func() (err error) {
		native, err = l.native.Open(req.Path)
		return err
	})
	l.metrics.since(phaseDlopen, start)
	if err != nil {
		l.hostFailed("host dynamic loader failed", err, zap.String("path", req.Path))
		return LoadResult{}, &errors.DynamicLoadingError{Path: req.Path, Diagnostic: err.Error(), Err: err}
	}

	handle := table.register(newModule(req.Path, native, mapping, consumed))
	l.logger.Debug("native library loaded",
		zap.String("path", req.Path), zap.Uint64("handle", uint64(handle)), zap.Uint64("consumed", consumed), zap.Uint64("entry", mapping.Entry))

	return LoadResult{
		Status:       errors.Success,
		Handle:       handle,
		ConsumedSize: consumed,
		Mapping:      mapping,
	}, nil
}

// admit returns the page rounded length, or errors.OutOfMemory when it does
// not fit in region.
func (l *Loader) admit(length uint64, region Region) (uint64, error) {
	defer l.metrics.since(phaseAdmit, time.Now())

	rounded, ok := RoundUp(length, l.pageSize)
	if !ok {
		return 0, fmt.Errorf("%w: length %d overflows when rounded to pages", errors.OutOfMemory, length)
	}
	if rounded > region.Size {
		return 0, fmt.Errorf("%w: need %#x bytes, region %s", errors.OutOfMemory, rounded, region)
	}
	return rounded, nil
}

// Resolve returns the host address of symbol in the library registered under
// handle. Translating the address into something the guest can use is up to
// the caller.
//
// handle must come from a successful Load on the same table and must not have
// been unloaded; errors.InvalidHandle is returned otherwise.
func (l *Loader) Resolve(table *Table, handle Handle, symbol string) (uintptr, error) {
	addr, err := l.resolve(table, handle, symbol)
	if err != nil {
		l.metrics.failed(errors.StatusOf(err))
		return 0, err
	}
	l.metrics.resolved()
	return addr, nil
}

func (l *Loader) resolve(table *Table, handle Handle, symbol string) (uintptr, error) {
	if table == nil {
		return 0, fmt.Errorf("%w: nil module table", errors.InvalidArgument)
	}
	module, ok := table.acquire(handle)
	if !ok {
		return 0, fmt.Errorf("%w: %d", errors.InvalidHandle, handle)
	}
	defer func() {
		if err := l.drop(module); err != nil {
			l.logger.Warn("closing native library", zap.String("path", module.path), zap.Error(err))
		}
	}()

	if symbol == "" {
		return 0, &errors.SymbolError{Symbol: symbol, Diagnostic: "empty symbol name"}
	}

	var addr uintptr
	start := time.Now()
	err := guard("dlsym", func() (err error) {
		addr, err = l.native.Symbol(module.native, symbol)
		return err
	})
	l.metrics.since(phaseDlsym, start)
	if err != nil {
		if IsPanic(err) {
			l.hostFailed("symbol lookup failed", err, zap.String("path", module.path), zap.String("symbol", symbol))
		} else {
			l.logger.Debug("symbol lookup failed", zap.String("path", module.path), zap.String("symbol", symbol), zap.Error(err))
		}
		return 0, &errors.SymbolError{Symbol: symbol, Diagnostic: err.Error(), Err: err}
	}
	return addr, nil
}

// hostFailed logs a host loader failure, at error level when the host loader
// panicked.
func (l *Loader) hostFailed(msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("diagnostic", err.Error()))
	if IsPanic(err) {
		l.logger.Error(msg, fields...)
		return
	}
	l.logger.Warn(msg, fields...)
}

// Unload drops the table's reference on the library registered under handle.
// The host handle is closed once no symbol lookup uses it anymore.
func (l *Loader) Unload(table *Table, handle Handle) error {
	if table == nil {
		return fmt.Errorf("%w: nil module table", errors.InvalidArgument)
	}
	module, ok := table.remove(handle)
	if !ok {
		return fmt.Errorf("%w: %d", errors.InvalidHandle, handle)
	}
	return l.drop(module)
}

// UnloadAll unloads every library of table, typically when the guest process
// exits.
func (l *Loader) UnloadAll(table *Table) error {
	if table == nil {
		return fmt.Errorf("%w: nil module table", errors.InvalidArgument)
	}
	var errs []error
	for _, module := range table.removeAll() {
		errs = append(errs, l.drop(module))
	}
	return goerrors.Join(errs...)
}

// drop releases one reference on module, closing the host handle with the
// last one.
func (l *Loader) drop(module *Module) error {
	if !module.drop() {
		return nil
	}
	if err := guard("dlclose", func() error { return l.native.Close(module.native) }); err != nil {
		return fmt.Errorf("closing %q: %w", module.path, err)
	}
	l.logger.Debug("native library closed", zap.String("path", module.path), zap.Uint64("handle", uint64(module.handle)))
	return nil
}
