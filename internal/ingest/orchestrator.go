// Package ingest implements the synchronous fast path that turns a raw URL
// submission into a persisted bookmark and a queued enrichment job.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/linkhoard/linkhoard/internal/bookmarks"
	"github.com/linkhoard/linkhoard/internal/metrics"
	"github.com/linkhoard/linkhoard/internal/scrape"
)

// Stage names the steps of the ingestion pipeline. Each request walks the
// stages in order; a stage either returns the next stage or an error that
// terminates the walk.
type Stage string

// Pipeline stages.
const (
	StageValidating        Stage = "validating"
	StageCheckingAccess    Stage = "checking_access"
	StageCheckingDuplicate Stage = "checking_duplicate"
	StageClassifying       Stage = "classifying"
	StageScraping          Stage = "scraping"
	StageInserting         Stage = "inserting"
	StageEnqueuing         Stage = "enqueuing"
	StageDone              Stage = "done"
)

// Metric outcomes for the ingestion counter.
const (
	outcomeAccepted  = "accepted"
	outcomeRejected  = "rejected"
	outcomeConflict  = "conflict"
	outcomeForbidden = "forbidden"
	outcomeError     = "error"
)

// Request is a parsed ingestion submission together with the caller identity.
type Request struct {
	URL          string
	RawCategory  json.RawMessage
	UpdateAccess bool
	UserID       string
	UserEmail    string
}

// Enqueuer hands an enrichment job to background delivery. Implementations
// must not block the request path.
type Enqueuer interface {
	Enqueue(job bookmarks.EnrichmentJob)
}

// Orchestrator composes the guards, scraper, classifier, and probe into the
// synchronous ingestion state machine.
type Orchestrator struct {
	store      bookmarks.Store
	access     *AccessGuard
	duplicates *DuplicateGuard
	classifier bookmarks.MediaClassifier
	scraper    bookmarks.Scraper
	probe      bookmarks.EmbedProbe
	policy     scrape.SitePolicy
	enqueuer   Enqueuer
	log        *zap.Logger
}

// NewOrchestrator wires the fast path.
func NewOrchestrator(store bookmarks.Store, access *AccessGuard, duplicates *DuplicateGuard,
	classifier bookmarks.MediaClassifier, scraper bookmarks.Scraper, probe bookmarks.EmbedProbe,
	policy scrape.SitePolicy, enqueuer Enqueuer, log *zap.Logger) (*Orchestrator, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if access == nil || duplicates == nil {
		return nil, fmt.Errorf("access and duplicate guards are required")
	}
	if classifier == nil || scraper == nil || probe == nil {
		return nil, fmt.Errorf("classifier, scraper, and probe are required")
	}
	if enqueuer == nil {
		return nil, fmt.Errorf("enqueuer is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		store:      store,
		access:     access,
		duplicates: duplicates,
		classifier: classifier,
		scraper:    scraper,
		probe:      probe,
		policy:     policy,
		enqueuer:   enqueuer,
		log:        log,
	}, nil
}

type ingestState struct {
	req      Request
	category int64
	class    bookmarks.MediaClass
	title    string
	desc     string
	meta     bookmarks.MetaData
	record   bookmarks.Record
}

// Ingest runs a submission through the pipeline and returns the inserted
// record. Errors wrap the package sentinels so callers can map them onto
// HTTP status codes.
func (o *Orchestrator) Ingest(ctx context.Context, req Request) (bookmarks.Record, error) {
	st := &ingestState{req: req}
	stage := StageValidating
	for stage != StageDone {
		next, err := o.step(ctx, stage, st)
		if err != nil {
			metrics.ObserveIngestion(outcomeFor(err))
			return bookmarks.Record{}, err
		}
		stage = next
	}
	metrics.ObserveIngestion(outcomeAccepted)
	return st.record, nil
}

func (o *Orchestrator) step(ctx context.Context, stage Stage, st *ingestState) (Stage, error) {
	switch stage {
	case StageValidating:
		return o.validate(st)
	case StageCheckingAccess:
		return o.checkAccess(ctx, st)
	case StageCheckingDuplicate:
		return o.checkDuplicate(ctx, st)
	case StageClassifying:
		st.class = o.classifier.Classify(ctx, st.req.URL)
		return StageScraping, nil
	case StageScraping:
		return o.scrapeAndProbe(ctx, st)
	case StageInserting:
		return o.insert(ctx, st)
	case StageEnqueuing:
		o.enqueuer.Enqueue(bookmarks.EnrichmentJob{
			BookmarkID: st.record.ID,
			URL:        st.record.URL,
			UserID:     st.record.UserID,
			FavIcon:    st.record.MetaData.FavIcon,
			IsImage:    st.class.IsImage,
		})
		return StageDone, nil
	default:
		return StageDone, fmt.Errorf("unknown pipeline stage %q", stage)
	}
}

func (o *Orchestrator) validate(st *ingestState) (Stage, error) {
	if !st.req.UpdateAccess {
		return "", fmt.Errorf("%w: update access was not granted", bookmarks.ErrForbidden)
	}
	if st.req.URL == "" {
		return "", fmt.Errorf("%w: url is required", bookmarks.ErrInvalid)
	}
	parsed, err := url.Parse(st.req.URL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", fmt.Errorf("%w: url must be absolute http or https", bookmarks.ErrInvalid)
	}
	category, err := ResolveCategoryID(st.req.RawCategory)
	if err != nil {
		return "", err
	}
	st.category = category
	if category == bookmarks.UncategorizedID {
		// Uncategorized bookmarks have no owner and accept duplicates.
		return StageClassifying, nil
	}
	return StageCheckingAccess, nil
}

func (o *Orchestrator) checkAccess(ctx context.Context, st *ingestState) (Stage, error) {
	decision, err := o.access.CheckAccess(ctx, st.category, st.req.UserID, st.req.UserEmail)
	if err != nil {
		return "", fmt.Errorf("access check: %w", err)
	}
	if !decision.Allowed {
		return "", fmt.Errorf("%w: %s", bookmarks.ErrForbidden, decision.Reason)
	}
	return StageCheckingDuplicate, nil
}

func (o *Orchestrator) checkDuplicate(ctx context.Context, st *ingestState) (Stage, error) {
	exists, err := o.duplicates.Exists(ctx, st.req.URL, st.category)
	if err != nil {
		return "", err
	}
	if exists {
		return "", bookmarks.ErrConflict
	}
	return StageClassifying, nil
}

// scrapeAndProbe fills in the minimal metadata. Direct-media URLs are never
// scraped or probed; the image URL itself becomes the display image and
// iframe embeddability stays unevaluated.
func (o *Orchestrator) scrapeAndProbe(ctx context.Context, st *ingestState) (Stage, error) {
	if st.class.IsDirectMedia {
		st.title = scrape.Hostname(st.req.URL)
		st.meta.MediaType = st.class.ContentType
		if st.class.IsImage {
			st.meta.OGImage = st.req.URL
		}
		return StageInserting, nil
	}

	result := o.scraper.Scrape(ctx, st.req.URL)
	if result.Degraded != nil {
		metrics.ObserveScrapeFailure()
		o.log.Warn("scrape degraded to hostname metadata",
			zap.String("url", st.req.URL),
			zap.Error(result.Degraded))
	}
	st.title = result.Title
	st.desc = result.Description
	st.meta.OGImage = result.OGImage
	st.meta.FavIcon = scrape.NormalizeFavicon(st.req.URL, result.FavIcon)

	if o.policy.OGImagePreferred(st.req.URL) {
		// Preferred sites are assumed non-embeddable by policy; skip the
		// probe and drop their generic OG image.
		st.meta.OGImagePreferred = true
		st.meta.OGImage = ""
	} else {
		allowed := o.probe.CanEmbed(ctx, st.req.URL)
		st.meta.IframeAllowed = &allowed
	}
	return StageInserting, nil
}

func (o *Orchestrator) insert(ctx context.Context, st *ingestState) (Stage, error) {
	rec, err := o.store.Insert(ctx, bookmarks.Record{
		URL:         st.req.URL,
		UserID:      st.req.UserID,
		CategoryID:  st.category,
		Title:       st.title,
		Description: st.desc,
		Type:        bookmarks.TypeBookmark,
		MetaData:    st.meta,
	})
	if err != nil {
		return "", fmt.Errorf("insert bookmark: %w", err)
	}
	st.record = rec
	return StageEnqueuing, nil
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, bookmarks.ErrConflict):
		return outcomeConflict
	case errors.Is(err, bookmarks.ErrForbidden):
		return outcomeForbidden
	case errors.Is(err, bookmarks.ErrInvalid), errors.Is(err, bookmarks.ErrUnauthorized):
		return outcomeRejected
	default:
		return outcomeError
	}
}
