package axe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/user/a11y-auditor/internal/entity"
	"github.com/user/a11y-auditor/internal/repository"
)

const loadedScript = `typeof window.axe === "object" && typeof window.axe.run === "function"`

// runScript resolves to the categorised results with node lists reduced to counts.
const runScript = `(function(tags){
  function slim(list){return (list||[]).map(function(r){return {id:r.id,impact:r.impact,description:r.description,help:r.help,helpUrl:r.helpUrl,tags:r.tags,nodeCount:(r.nodes||[]).length};});}
  var opts = {resultTypes:["violations","passes","incomplete","inapplicable"]};
  if (tags.length) opts.runOnly = {type:"tag",values:tags};
  return window.axe.run(document, opts).then(function(r){
    return {url:r.url,timestamp:r.timestamp,passes:slim(r.passes),violations:slim(r.violations),incomplete:slim(r.incomplete),inapplicable:slim(r.inapplicable)};
  });
})(%s)`

// AxeClient runs axe-core inside the page.
type AxeClient struct {
	source string
	logger *zap.Logger
}

// NewAxeClient reads the axe-core bundle from scriptPath.
func NewAxeClient(scriptPath string, logger *zap.Logger) (*AxeClient, error) {
	data, err := os.ReadFile(scriptPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read axe-core script: %w", err)
	}
	return &AxeClient{source: string(data), logger: logger}, nil
}

// Analyze injects axe-core if the page does not have it yet and runs the rules
// matching tags. The caller bounds the run through ctx.
func (c *AxeClient) Analyze(ctx context.Context, page repository.Page, tags []string) (*entity.RuleResults, error) {
	var loaded bool
	if err := page.Evaluate(ctx, loadedScript, &loaded); err != nil {
		return nil, classify(ctx, err)
	}
	if !loaded {
		if err := page.Evaluate(ctx, c.source, nil); err != nil {
			return nil, classify(ctx, fmt.Errorf("inject axe-core: %w", err))
		}
	}

	if tags == nil {
		tags = []string{}
	}
	arg, err := json.Marshal(tags)
	if err != nil {
		return nil, err
	}
	var res entity.RuleResults
	if err := page.Evaluate(ctx, fmt.Sprintf(runScript, arg), &res); err != nil {
		return nil, classify(ctx, err)
	}

	c.logger.Debug("Axe run finished",
		zap.String("url", res.URL),
		zap.Int("violations", len(res.Violations)),
		zap.Int("passes", len(res.Passes)),
	)
	return &res, nil
}

func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", repository.ErrAnalysisTimeout, err)
	}
	return fmt.Errorf("%w: %v", repository.ErrAnalysisFailed, err)
}
