package gtfsmeta

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"tidbyt.dev/gtfsmeta/digest"
	"tidbyt.dev/gtfsmeta/feed"
	"tidbyt.dev/gtfsmeta/model"
	"tidbyt.dev/gtfsmeta/parse"
	"tidbyt.dev/gtfsmeta/process"
)

var ErrHashNotComputed = errors.New("hash not computed")

// State of a dataset version as it moves through the pipeline.
type State int

const (
	StateDownloaded State = iota
	StateHashed
	StateDiscarded
	StateParsed
	StateMetadataComputed
	StatePublished
)

func (s State) String() string {
	switch s {
	case StateDownloaded:
		return "downloaded"
	case StateHashed:
		return "hashed"
	case StateDiscarded:
		return "discarded"
	case StateParsed:
		return "parsed"
	case StateMetadataComputed:
		return "metadata_computed"
	case StatePublished:
		return "published"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Result of running one dataset version through the pipeline.
//
// State is the last state reached. Err is set if the version could
// not proceed further than that. FieldErrors holds the errors of
// processors that failed, keyed on processor name; their fields are
// left unset. KnownEntityID is the catalog entity of the matching
// version when the version is discarded.
type Result struct {
	Info          *model.DatasetVersionInfo
	State         State
	Metadata      *model.FeedMetadata
	FieldErrors   map[string]error
	KnownEntityID string
	Err           error
}

// Publisher receives completed metadata. storage.Storage is one.
type Publisher interface {
	WriteFeedMetadata(metadata *model.FeedMetadata) error
}

// Pipeline hashes, deduplicates, parses and computes metadata for
// dataset versions.
type Pipeline struct {
	Processors []process.Processor

	// Receives metadata of new versions. When nil, versions stop
	// at StateMetadataComputed.
	Publisher Publisher

	// Loads the archive at path. Defaults to parse.ParseStaticFile.
	Parse func(path string) (*feed.Feed, error)

	// Number of versions processed concurrently. Values below 2
	// process versions one at a time, in order.
	Workers int

	Logger *slog.Logger

	publishMutex sync.Mutex
}

func NewPipeline(processors []process.Processor, publisher Publisher) *Pipeline {
	return &Pipeline{
		Processors: processors,
		Publisher:  publisher,
		Parse:      parse.ParseStaticFile,
		Workers:    1,
		Logger:     slog.Default(),
	}
}

// Run processes every version and returns one Result per version, in
// the same order. Failures of individual versions are recorded in
// their Result and never stop the batch. The returned error is only
// set if ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, versions []*model.DatasetVersionInfo) ([]*Result, error) {
	results := make([]*Result, len(versions))

	if p.Workers < 2 {
		for i, info := range versions {
			if err := ctx.Err(); err != nil {
				return results, err
			}
			results[i] = p.Process(ctx, info)
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Workers)
	for i, info := range versions {
		i, info := i, info
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.Process(gctx, info)
			return nil
		})
	}
	return results, g.Wait()
}

// Process runs a single dataset version through the pipeline.
func (p *Pipeline) Process(ctx context.Context, info *model.DatasetVersionInfo) *Result {
	logger := p.logger().With("source_id", info.SourceID, "archive", info.ArchivePath)
	res := &Result{Info: info, State: StateDownloaded}

	// Downloaded -> Hashed
	hash, err := digest.ComputeFileHash(info.ArchivePath)
	if err != nil {
		res.Err = fmt.Errorf("%w: %w", ErrHashNotComputed, err)
		logger.Error("hashing archive", "error", err)
		return res
	}
	info.Hash = hash
	res.State = StateHashed
	logger = logger.With("version", info.VersionName())

	// Hashed -> Discarded
	if !digest.IsNewVersion(hash, info.PreviousHashes) {
		res.State = StateDiscarded
		res.KnownEntityID = info.KnownEntityID(hash)
		logger.Info(
			"version already known, discarding",
			"hash", hash,
			"entity_id", res.KnownEntityID,
			"known_versions", len(info.PreviousHashes),
		)
		return res
	}

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	// Hashed -> Parsed
	parseFn := p.Parse
	if parseFn == nil {
		parseFn = parse.ParseStaticFile
	}
	f, err := parseFn(info.ArchivePath)
	if err != nil {
		res.Err = fmt.Errorf("parsing: %w", err)
		logger.Error("parsing archive", "error", err)
		return res
	}
	f.Metadata = model.NewFeedMetadata(info)
	res.Metadata = f.Metadata
	res.State = StateParsed

	// Parsed -> MetadataComputed
	res.FieldErrors = p.Compute(logger, f)
	res.State = StateMetadataComputed
	logger.Info("metadata computed", "failed_fields", len(res.FieldErrors))

	if p.Publisher == nil {
		return res
	}

	// MetadataComputed -> Published
	if err := p.publish(f.Metadata); err != nil {
		res.Err = fmt.Errorf("publishing: %w", err)
		logger.Error("publishing metadata", "error", err)
		return res
	}
	res.State = StatePublished
	logger.Info("metadata published", "entity_id", info.EntityID)

	return res
}

// Compute applies every processor to f in order. Errors and panics
// of one processor are logged and returned, and don't stop the
// others.
func (p *Pipeline) Compute(logger *slog.Logger, f *feed.Feed) map[string]error {
	if logger == nil {
		logger = p.logger()
	}

	errs := map[string]error{}
	for _, proc := range p.Processors {
		if err := runProcessor(proc, f); err != nil {
			errs[proc.Name] = err
			logger.Warn("processor failed", "processor", proc.Name, "error", err)
		}
	}
	return errs
}

func runProcessor(proc process.Processor, f *feed.Feed) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	_, err = proc.Process(f)
	return err
}

func (p *Pipeline) publish(metadata *model.FeedMetadata) error {
	p.publishMutex.Lock()
	defer p.publishMutex.Unlock()
	return p.Publisher.WriteFeedMetadata(metadata)
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}
