// graphopt 读取图统计信息和候选计划文件，按成本排序输出
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/kasuganosora/graphcbo/pkg/config"
	"github.com/kasuganosora/graphcbo/pkg/logging"
	"github.com/kasuganosora/graphcbo/pkg/optimizer"
	"github.com/kasuganosora/graphcbo/pkg/optimizer/plan"
	"github.com/kasuganosora/graphcbo/pkg/optimizer/statistics"
	"github.com/kasuganosora/graphcbo/pkg/statsource"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	configPath string
	plansPath  string
	statsPath  string
	exportPath string
	top        int
	explain    bool
	verbose    bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("graphopt", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	fs.StringVar(&opts.configPath, "config", "", "配置文件路径（JSON 或 YAML），为空时按 GRAPHCBO_CONFIG 和默认位置查找")
	fs.StringVar(&opts.plansPath, "plans", "", "候选计划文件（JSON 或 YAML）")
	fs.StringVar(&opts.statsPath, "stats", "", "统计信息文件，覆盖配置中的来源")
	fs.StringVar(&opts.exportPath, "export", "", "将加载的统计信息写入文件")
	fs.IntVar(&opts.top, "top", 0, "只输出成本最低的前 N 个计划，0 表示全部")
	fs.BoolVar(&opts.explain, "explain", false, "输出每个计划的逐顶点估算")
	fs.BoolVar(&opts.verbose, "v", false, "输出调试日志")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.plansPath == "" && opts.exportPath == "" {
		return nil, errors.New("-plans or -export is required")
	}
	return opts, nil
}

func loadConfig(opts *options) (*config.Config, error) {
	cfg := config.LoadConfigOrDefault()
	if opts.configPath != "" {
		loaded, err := config.LoadConfig(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if opts.statsPath != "" {
		cfg.Statistics.Source = string(statsource.KindFile)
		cfg.Statistics.Path = opts.statsPath
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(stderr, "加载配置失败: %v\n", err)
		return 1
	}

	logOpts := cfg.Log.LoggingOptions()
	logOpts.Output = stderr
	logger := logging.NewLogger(logOpts)
	defer logger.Close()
	statistics.SetLogger(logger)
	statistics.SetDebug(opts.verbose)

	if err := optimize(ctx, cfg, opts, logger, stdout); err != nil {
		logger.Error("%v", err)
		return 1
	}
	return 0
}

func optimize(ctx context.Context, cfg *config.Config, opts *options, logger logging.Logger, out io.Writer) error {
	src, err := statsource.Open(cfg.Statistics.SourceOptions(), logger)
	if err != nil {
		return err
	}
	defer statsource.Close(src)

	catalog, err := src.Load(ctx)
	if err != nil {
		return err
	}
	logger.Info("加载统计信息: %s (%d vertex types, %d edge types)",
		src.Name(), len(catalog.Schema.VertexLabels()), len(catalog.Schema.EdgeLabels()))

	if opts.exportPath != "" {
		if err := statsource.NewFileSource(opts.exportPath).Save(catalog); err != nil {
			return err
		}
		logger.Info("统计信息已导出: %s", opts.exportPath)
	}
	if opts.plansPath == "" {
		return nil
	}

	gs, err := catalog.GraphStatistics()
	if err != nil {
		return err
	}

	set, err := plan.ReadDocumentSet(opts.plansPath)
	if err != nil {
		return err
	}
	plans, err := set.Graphs()
	if err != nil {
		return err
	}

	opt, err := optimizer.NewOptimizer(cfg, gs, logger)
	if err != nil {
		return err
	}
	defer opt.Close()

	ranked, errs := opt.Rank(ctx, plans)
	for _, err := range errs {
		logger.Warn("%v", err)
	}
	if len(ranked) == 0 {
		return fmt.Errorf("none of %d plans could be costed", len(plans))
	}
	if opts.top > 0 && opts.top < len(ranked) {
		ranked = ranked[:opts.top]
	}

	weights := opt.Comparator().Weights
	for i, p := range ranked {
		fmt.Fprintf(out, "%d. %s total=%.2f\n", i+1, p, p.Costs().Total(weights))
		if opts.explain {
			text, err := opt.Explain(p.Plan())
			if err != nil {
				return err
			}
			fmt.Fprint(out, text)
		}
	}
	return nil
}
