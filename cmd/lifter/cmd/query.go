package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/solatis/lifter/internal/lookups/celpred"
	"github.com/solatis/lifter/internal/query"
	"github.com/solatis/lifter/internal/queryset"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var queryCmd = &cobra.Command{
	Use:   "query <source> [path__lookup=value ...]",
	Short: "Query a document, REST resource or SQL table",
	Long: `Query a source and print the result as JSON.

Sources:
  data.json, file://..., http(s)://..., s3://bucket/key   document sources
  rest:[app/]name                                         resource under remote.base_url
  sql:table                                               table in the --db-url database

Filters are keyword arguments: "age__gte=30", "city=Paris", "tags__label=go".
Values are decoded as JSON when possible, so numbers, booleans, null and
lists work as expected; anything else is a string.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	addQueryFlags(queryCmd.Flags())
}

func addQueryFlags(f *pflag.FlagSet) {
	f.StringArray("exclude", nil, "exclude records matching path__lookup=value (repeatable)")
	f.StringArray("cel", nil, "filter with a CEL predicate over a path: path:expression (repeatable)")
	f.StringSlice("order-by", nil, "orderings: name, -name (descending), ? (random)")
	f.Bool("count", false, "print the number of matches")
	f.Bool("exists", false, "print whether anything matches")
	f.StringSlice("values", nil, "project to these paths")
	f.Bool("flat", false, "with a single --values path, print bare values")
	f.StringArray("aggregate", nil, "aggregate: sum|min|max|avg:path[:name] (repeatable)")
	f.Bool("distinct", false, "drop duplicate results")
	f.Bool("permissive", false, "treat missing fields as non-matches")
	f.Int("limit", 0, "maximum number of results (0 for all)")
	f.Int("offset", 0, "number of results to skip")
	f.String("model", "", "model name for document sources")
	f.String("results-key", "", "unwrap JSON envelopes under this key")
	f.String("regex", "", "adapt text lines with a regular expression using named groups")
	f.String("schema", "", "validate records against this JSON schema file")
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	f := cmd.Flags()

	opts := sourceOptions{}
	opts.modelName, _ = f.GetString("model")
	opts.resultsKey, _ = f.GetString("results-key")
	opts.regex, _ = f.GetString("regex")
	opts.schemaFile, _ = f.GetString("schema")

	rt, err := openRuntime(args[0], cfg, opts, log)
	if err != nil {
		return err
	}
	defer rt.Close()
	defer logMetrics(log, rt.metrics)

	qs, err := buildQuerySet(cmd, queryset.NewManager(rt.store, rt.model).All(), args[1:])
	if err != nil {
		return err
	}

	result, err := evaluate(ctx, cmd, qs)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// buildQuerySet applies the filter, ordering and shaping flags.
func buildQuerySet(cmd *cobra.Command, qs *queryset.QuerySet, filters []string) (*queryset.QuerySet, error) {
	f := cmd.Flags()

	kw, err := parseAssignments(filters)
	if err != nil {
		return nil, err
	}
	if len(kw) > 0 {
		if qs, err = qs.FilterKeywords(kw); err != nil {
			return nil, err
		}
	}

	excludes, _ := f.GetStringArray("exclude")
	for _, ex := range excludes {
		kw, err := parseAssignments([]string{ex})
		if err != nil {
			return nil, err
		}
		if qs, err = qs.ExcludeKeywords(kw); err != nil {
			return nil, err
		}
	}

	predicates, _ := f.GetStringArray("cel")
	if len(predicates) > 0 {
		compiler, err := celpred.NewCompiler()
		if err != nil {
			return nil, err
		}
		for _, p := range predicates {
			node, err := parseCEL(compiler, p)
			if err != nil {
				return nil, err
			}
			qs = qs.Filter(node)
		}
	}

	if orderings, _ := f.GetStringSlice("order-by"); len(orderings) > 0 {
		if qs, err = qs.OrderByNames(orderings...); err != nil {
			return nil, err
		}
	}
	// With --values, distinct applies to the projected rows instead.
	distinct, _ := f.GetBool("distinct")
	if fields, _ := f.GetStringSlice("values"); distinct && len(fields) == 0 {
		qs = qs.Distinct()
	}
	if permissive, _ := f.GetBool("permissive"); permissive {
		qs = qs.Permissive()
	}

	limit, _ := f.GetInt("limit")
	offset, _ := f.GetInt("offset")
	if offset > 0 && limit == 0 {
		return nil, fmt.Errorf("--offset requires --limit")
	}
	if limit > 0 {
		if qs, err = qs.Slice(offset, offset+limit); err != nil {
			return nil, err
		}
	}
	return qs, nil
}

// evaluate runs the action selected by the flags.
func evaluate(ctx context.Context, cmd *cobra.Command, qs *queryset.QuerySet) (any, error) {
	f := cmd.Flags()

	if count, _ := f.GetBool("count"); count {
		return qs.Count(ctx)
	}
	if exists, _ := f.GetBool("exists"); exists {
		return qs.Exists(ctx, true)
	}
	if exprs, _ := f.GetStringArray("aggregate"); len(exprs) > 0 {
		aggs := make([]query.Aggregate, 0, len(exprs))
		for _, expr := range exprs {
			a, err := parseAggregate(expr)
			if err != nil {
				return nil, err
			}
			aggs = append(aggs, a)
		}
		return qs.Aggregate(ctx, aggs...)
	}
	if fields, _ := f.GetStringSlice("values"); len(fields) > 0 {
		paths := make([]query.Path, len(fields))
		for i, field := range fields {
			p, err := query.ParsePath(field)
			if err != nil {
				return nil, err
			}
			paths[i] = p
		}
		flat, _ := f.GetBool("flat")
		var projected *queryset.QuerySet
		var err error
		if flat {
			projected, err = qs.ValuesList(ctx, true, paths...)
		} else {
			projected, err = qs.Values(ctx, paths...)
		}
		if err != nil {
			return nil, err
		}
		if distinct, _ := f.GetBool("distinct"); distinct {
			projected = projected.Distinct()
		}
		return projected.Fetch(ctx)
	}
	return qs.Fetch(ctx)
}

// parseAssignments turns key=value arguments into keyword filters.
func parseAssignments(args []string) (map[string]any, error) {
	kw := make(map[string]any, len(args))
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q: want path__lookup=value", arg)
		}
		kw[key] = parseValue(raw)
	}
	return kw, nil
}

// parseValue decodes JSON literals and falls back to the raw string.
func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

// parseCEL builds a test leaf from "path:expression".
func parseCEL(compiler *celpred.Compiler, arg string) (query.Node, error) {
	field, expr, ok := strings.Cut(arg, ":")
	if !ok || field == "" || strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("invalid --cel %q: want path:expression", arg)
	}
	p, err := query.ParsePath(field)
	if err != nil {
		return nil, err
	}
	l, err := compiler.Lookup(expr)
	if err != nil {
		return nil, err
	}
	return query.NewLeaf(p, l), nil
}

// parseAggregate reads "fn:path[:name]".
func parseAggregate(expr string) (query.Aggregate, error) {
	parts := strings.Split(expr, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return query.Aggregate{}, fmt.Errorf("invalid --aggregate %q: want fn:path[:name]", expr)
	}
	p, err := query.ParsePath(parts[1])
	if err != nil {
		return query.Aggregate{}, err
	}
	var a query.Aggregate
	switch parts[0] {
	case "sum":
		a = query.Sum(p)
	case "min":
		a = query.Min(p)
	case "max":
		a = query.Max(p)
	case "avg":
		a = query.Avg(p)
	default:
		return query.Aggregate{}, fmt.Errorf("unknown aggregate %q (expected sum, min, max, avg)", parts[0])
	}
	if len(parts) == 3 {
		a = a.As(parts[2])
	}
	return a, nil
}

// logMetrics reports the counters gathered during the command at debug level.
func logMetrics(log *slog.Logger, reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		log.Debug("failed to gather metrics", "error", err)
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			attrs := []any{"metric", mf.GetName()}
			for _, lp := range m.GetLabel() {
				attrs = append(attrs, lp.GetName(), lp.GetValue())
			}
			switch {
			case m.GetCounter() != nil:
				attrs = append(attrs, "value", m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				attrs = append(attrs, "count", m.GetHistogram().GetSampleCount(), "sum", m.GetHistogram().GetSampleSum())
			}
			log.Debug("metric", attrs...)
		}
	}
}
