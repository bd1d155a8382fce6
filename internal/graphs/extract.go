package graphs

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/akravets/coinboard/pkg/logger"
	"github.com/akravets/coinboard/pkg/models"
)

// LLM replies may embed fenced graph-data blocks whose lines are chart
// directives of the form <assetID>_<metric>_<period>, e.g.
//
//	```graph-data
//	bitcoin_price_7d
//	ethereum_market_cap_30d
//	```
//
// Extraction is best-effort: malformed blocks, unknown directives and
// assets missing from the snapshot are skipped, never fatal.
var (
	graphBlockRe = regexp.MustCompile("(?s)```graph-data\\s*\\n(.*?)```")
	directiveRe  = regexp.MustCompile(`^([a-z0-9-]+)_(price|market_cap)_(24h|7d|30d|90d)$`)
)

// StripDirectives removes graph-data blocks from the reply text so the
// frontend renders prose only; charts arrive as visualization events.
func StripDirectives(content string) string {
	return strings.TrimSpace(graphBlockRe.ReplaceAllString(content, ""))
}

// ExtractDirectives returns every well-formed directive in the reply, in
// order of appearance, deduplicated.
func ExtractDirectives(content string) []string {
	seen := make(map[string]struct{})
	directives := make([]string, 0)

	for _, block := range graphBlockRe.FindAllStringSubmatch(content, -1) {
		for _, line := range strings.Split(block[1], "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if !directiveRe.MatchString(line) {
				logger.Debug("skipping malformed graph directive", zap.String("line", line))
				continue
			}
			if _, dup := seen[line]; dup {
				continue
			}
			seen[line] = struct{}{}
			directives = append(directives, line)
		}
	}
	return directives
}

// BuildVisualizations resolves directives against the live snapshot. Each
// directive that cannot be resolved is dropped; the caller always gets the
// visualizations that did work.
func (s *Service) BuildVisualizations(ctx context.Context, content string) []models.Visualization {
	directives := ExtractDirectives(content)
	if len(directives) == 0 {
		return []models.Visualization{}
	}

	visualizations := make([]models.Visualization, 0, len(directives))
	for _, directive := range directives {
		vis, err := s.resolveDirective(ctx, directive)
		if err != nil {
			logger.Warn("failed to resolve graph directive",
				zap.String("directive", directive),
				zap.Error(err),
			)
			continue
		}
		visualizations = append(visualizations, *vis)
	}
	return visualizations
}

func (s *Service) resolveDirective(ctx context.Context, directive string) (*models.Visualization, error) {
	m := directiveRe.FindStringSubmatch(directive)
	assetID, metric, period := m[1], m[2], m[3]

	asset, err := s.assets.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}

	vis := &models.Visualization{
		Directive: directive,
		AssetID:   assetID,
		Symbol:    asset.Symbol,
		Metric:    metric,
		Period:    period,
	}

	// price_7d and price_24h come straight from the stored sparkline; the
	// other combinations need a provider chart fetch.
	switch {
	case metric == "price" && period == "7d":
		vis.DataPoints = sparklinePoints(asset, len(asset.Sparkline7d))
	case metric == "price" && period == "24h":
		vis.DataPoints = sparklinePoints(asset, 24)
	default:
		chart, err := s.fetcher.MarketChart(ctx, assetID, periodDays(period))
		if err != nil {
			return nil, err
		}
		series := chart.Prices
		if metric == "market_cap" {
			series = chart.MarketCaps
		}
		vis.DataPoints = chartPoints(series)
	}

	return vis, nil
}

// sparklinePoints maps the trailing n hourly sparkline samples onto hourly
// timestamps ending at the snapshot's fetch time.
func sparklinePoints(asset *models.Asset, n int) []models.VisualizationPoint {
	samples := asset.Sparkline7d
	if n < len(samples) {
		samples = samples[len(samples)-n:]
	}

	end := asset.LastFetched
	if end.IsZero() {
		end = time.Now().UTC()
	}

	points := make([]models.VisualizationPoint, len(samples))
	for i, price := range samples {
		points[i] = models.VisualizationPoint{
			Time:  end.Add(-time.Duration(len(samples)-1-i) * time.Hour),
			Price: price,
		}
	}
	return points
}

func chartPoints(pairs [][]float64) []models.VisualizationPoint {
	points := make([]models.VisualizationPoint, 0, len(pairs))
	for _, pair := range pairs {
		if len(pair) < 2 {
			continue
		}
		points = append(points, models.VisualizationPoint{
			Time:  time.UnixMilli(int64(pair[0])).UTC(),
			Price: pair[1],
		})
	}
	return points
}

func periodDays(period string) int {
	switch period {
	case "24h":
		return 1
	case "7d":
		return 7
	case "30d":
		return 30
	case "90d":
		return 90
	default:
		return 7
	}
}
