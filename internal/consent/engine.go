// Package consent dismisses cookie-consent and country dialogs on third-party pages.
// It is best effort: a miss or an internal error is reported as false, never as an error.
package consent

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/user/a11y-auditor/internal/repository"
	"github.com/user/a11y-auditor/pkg/metrics"
	"github.com/user/a11y-auditor/pkg/utils"
)

const maxSnapshotText = 200

// Config holds the settle delays waited before each attempt so dialogs can render.
type Config struct {
	ConsentSettle time.Duration
	CountrySettle time.Duration
}

// Engine runs the consent matcher chain and the country matcher against a page.
type Engine struct {
	chain       []Matcher
	country     Matcher
	consentOpts SnapshotOptions
	countryOpts SnapshotOptions
	cfg         Config
	logger      *zap.Logger
	domFor      func(repository.Page) DOM
	sleep       func(context.Context, time.Duration) error
}

// NewEngine creates a new instance of Engine.
func NewEngine(cat *Catalog, cfg Config, logger *zap.Logger) (*Engine, error) {
	chain, err := BuildChain(cat)
	if err != nil {
		return nil, err
	}
	country := NewTextMatcher("country", cat.Country.Keywords, 0).OnlyTags(cat.Country.Tags...).TopLevel()
	return &Engine{
		chain:   chain,
		country: country,
		consentOpts: SnapshotOptions{
			PierceShadow: true,
			Attributes:   cat.attributeNames(),
			MaxText:      maxSnapshotText,
		},
		countryOpts: SnapshotOptions{
			Tags:    cat.Country.Tags,
			MaxText: maxSnapshotText,
		},
		cfg:    cfg,
		logger: logger,
		domFor: newScriptDOM,
		sleep:  utils.Sleep,
	}, nil
}

// AttemptConsent tries each strategy in order and clicks the first match.
// It returns true iff a click was performed.
func (e *Engine) AttemptConsent(ctx context.Context, page repository.Page) bool {
	return e.attempt(ctx, page, "consent", e.cfg.ConsentSettle, e.consentOpts, e.chain)
}

// AttemptCountrySwitchDismissal clicks a top-level country/region button if one is shown.
func (e *Engine) AttemptCountrySwitchDismissal(ctx context.Context, page repository.Page) bool {
	return e.attempt(ctx, page, "country", e.cfg.CountrySettle, e.countryOpts, []Matcher{e.country})
}

func (e *Engine) attempt(ctx context.Context, page repository.Page, dialog string, settle time.Duration, opts SnapshotOptions, chain []Matcher) bool {
	log := e.logger.With(zap.String("dialog", dialog))

	if err := e.sleep(ctx, settle); err != nil {
		log.Debug("Settle wait interrupted", zap.Error(err))
		return false
	}

	dom := e.domFor(page)
	root, err := dom.Snapshot(ctx, opts)
	if err != nil {
		log.Warn("Could not read page elements", zap.Error(err))
		return false
	}

	for _, m := range chain {
		el, ok := m.TryMatch(root)
		if !ok {
			continue
		}
		if err := dom.Click(ctx, el.Ref); err != nil {
			log.Warn("Click on matched element failed",
				zap.String("strategy", m.Name()),
				zap.String("tag", el.Tag),
				zap.Error(err),
			)
			continue
		}
		log.Info("Dialog dismissed",
			zap.String("strategy", m.Name()),
			zap.String("tag", el.Tag),
			zap.String("element_id", el.ID),
		)
		metrics.ConsentAttemptsTotal.WithLabelValues(dialog, m.Name()).Inc()
		return true
	}

	log.Debug("No dialog element matched")
	metrics.ConsentAttemptsTotal.WithLabelValues(dialog, "none").Inc()
	return false
}
