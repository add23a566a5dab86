package service

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/medqa-ai/medqa/app/core"
	"github.com/medqa-ai/medqa/app/core/srv"
	v1 "github.com/medqa-ai/medqa/app/logic/v1"
	"github.com/medqa-ai/medqa/pkg/ai/deepseek"
	"github.com/medqa-ai/medqa/pkg/indexer"
)

type Options struct {
	ConfigPath string
}

func (o *Options) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVarP(&o.ConfigPath, "config", "c", "", "init api by given config")
}

func NewCommand() *cobra.Command {
	opts := &Options{}
	cmd := &cobra.Command{
		Use:   "service",
		Short: "medical qa chat service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(opts)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

func Run(opts *Options) error {
	app := core.MustSetupCore(core.MustLoadBaseConfig(opts.ConfigPath))
	serve(app)

	return nil
}

func NewChatCommand() *cobra.Command {
	opts := &Options{}
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "interactive medical qa console",
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunChat(opts)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

// RunChat 终端交互问答。自然语言回复边生成边打印，
// 之后输出结构化卡片，exit/quit 退出
func RunChat(opts *Options) error {
	app := core.MustSetupCore(core.MustLoadBaseConfig(opts.ConfigPath))
	logic := v1.NewChatLogic(context.Background(), app)

	fmt.Println("医疗问答助手已启动，输入 exit 退出对话")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n患者: ")
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if lowered := strings.ToLower(query); lowered == "exit" || lowered == "quit" {
			break
		}

		fmt.Print("\n助手: ")
		formatted, err := logic.StreamAndReplace(query, v1.DefaultTemperature, func(delta string) error {
			fmt.Print(delta)
			return nil
		})
		if err != nil {
			fmt.Printf("\n系统错误: %s\n", err)
			continue
		}
		fmt.Printf("\n\n%s\n", formatted.Formatted)
	}

	return scanner.Err()
}

type IndexOptions struct {
	Options
	CSVDir string
}

// NewIndexCommand 离线构建知识语料与向量索引。
// 指定 --csv-dir 时先把目录下的问答 CSV 合并成 contexts.json，再做向量化
func NewIndexCommand() *cobra.Command {
	opts := &IndexOptions{}
	cmd := &cobra.Command{
		Use:   "index",
		Short: "build knowledge corpus and vector index",
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunIndex(opts)
		},
	}
	opts.AddFlags(cmd.Flags())
	cmd.Flags().StringVar(&opts.CSVDir, "csv-dir", "", "merge qa csv files from this directory into the corpus first")
	return cmd
}

func RunIndex(opts *IndexOptions) error {
	cfg := core.MustLoadBaseConfig(opts.ConfigPath)
	ctx := context.Background()

	if opts.CSVDir != "" {
		n, err := indexer.MergeCSVDir(opts.CSVDir, cfg.Retrieval.CorpusPath)
		if err != nil {
			return err
		}
		fmt.Printf("merged %d records into %s\n", n, cfg.Retrieval.CorpusPath)
	}

	driver := deepseek.New(cfg.AI.Token, cfg.AI.Endpoint, cfg.AI.Model)
	s := srv.SetupSrvs(srv.ApplyAI(driver, driver))

	n, err := indexer.BuildIndex(ctx, cfg.Retrieval.CorpusPath, cfg.Retrieval.IndexDir, s.AI().Embedder())
	if err != nil {
		return err
	}
	fmt.Printf("indexed %d documents into %s\n", n, cfg.Retrieval.IndexDir)

	return nil
}
