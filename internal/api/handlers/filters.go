package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/stockfloat/internal/domain"
	"github.com/andresuchdata/stockfloat/internal/ingest"
)

// ParseFilters reads filters from query parameters. List parameters accept both
// repeated values and comma separated lists:
//
//	?distributor=A&distributor=B
//	?distributor=A,B
func ParseFilters(c *gin.Context) (domain.Filters, error) {
	f := domain.Filters{
		Market:       strings.TrimSpace(c.Query("market")),
		Distributors: queryList(c, "distributor", "distributors"),
		Varieties:    queryList(c, "variety", "varieties"),
		Years:        queryList(c, "year", "years"),
	}

	for _, bound := range []struct {
		param string
		dst   **domain.Period
	}{{"from", &f.From}, {"to", &f.To}} {
		raw := strings.TrimSpace(c.Query(bound.param))
		if raw == "" {
			continue
		}
		p, ok := ingest.ParsePeriod(raw)
		if !ok {
			return f, fmt.Errorf("invalid %s period %q", bound.param, raw)
		}
		*bound.dst = &p
	}

	switch mode := domain.ProjectionMode(strings.ToLower(strings.TrimSpace(c.Query("mode")))); mode {
	case "":
	case domain.ModeForward, domain.ModeHistorical:
		f.Mode = mode
	default:
		return f, fmt.Errorf("invalid mode %q", mode)
	}

	if raw := strings.TrimSpace(c.Query("horizon")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return f, fmt.Errorf("invalid horizon %q", raw)
		}
		f.Horizon = n
	}
	if raw := strings.TrimSpace(c.Query("threshold")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			return f, fmt.Errorf("invalid threshold %q", raw)
		}
		f.Threshold = v
	}

	return f, nil
}

func queryList(c *gin.Context, names ...string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, name := range names {
		for _, v := range c.QueryArray(name) {
			for _, part := range strings.Split(v, ",") {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				key := strings.ToLower(part)
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}
				out = append(out, part)
			}
		}
	}
	return out
}
