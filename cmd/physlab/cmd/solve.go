package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var solveCmd = &cobra.Command{
	Use:   "solve <module> [key=value...]",
	Short: "Solve a physics formula",
	Long: `Solve a physics module with the given known values.

Inputs can be passed as key=value pairs, read from a YAML/JSON file, or both
(command line values override the file). Leave an unknown out to solve for it.

Examples:
  # Ohm's law: current from voltage and resistance
  physlab solve ohms_law V=10 R=5

  # Kinematics from a file, re-solving every time the file is saved
  physlab solve kinematics --file inputs.yaml --watch`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSolve,
}

var (
	solveFile  string
	solveWatch bool
)

func init() {
	rootCmd.AddCommand(solveCmd)
	solveCmd.Flags().StringVarP(&solveFile, "file", "f", "", "Read inputs from a YAML or JSON file")
	solveCmd.Flags().BoolVarP(&solveWatch, "watch", "w", false, "Re-solve whenever the input file changes")
}

func runSolve(cmd *cobra.Command, args []string) error {
	module := args[0]
	overrides, err := parseAssignments(args[1:])
	if err != nil {
		return err
	}
	if solveWatch && solveFile == "" {
		return fmt.Errorf("--watch requires --file")
	}

	client := NewClient()
	printer := NewPrinter(cmd.OutOrStdout())

	solveOnce := func() error {
		params, err := loadInputs(solveFile)
		if err != nil {
			return err
		}
		for k, v := range overrides {
			params[k] = v
		}
		res, err := client.Solve(module, params)
		if err != nil {
			return err
		}
		return printer.PrintResult(res)
	}

	if !solveWatch {
		return solveOnce()
	}

	if err := solveOnce(); err != nil {
		cmd.PrintErrf("Error: %v\n", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return watchFile(ctx, solveFile, func() {
		cmd.Printf("\n[%s] File changed, solving again...\n", time.Now().Format("15:04:05"))
		if err := solveOnce(); err != nil {
			cmd.PrintErrf("Error: %v\n", err)
		}
	})
}

// parseAssignments 解析 key=value 形式的参数，值原样交给服务端解析
func parseAssignments(args []string) (map[string]any, error) {
	out := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid input %q: expected key=value", arg)
		}
		out[key] = strings.TrimSpace(value)
	}
	return out, nil
}

// loadInputs 从 YAML/JSON 文件读取输入，path 为空时返回空映射
func loadInputs(path string) (map[string]any, error) {
	params := map[string]any{}
	if path == "" {
		return params, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	if err := yaml.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("failed to parse input file: %w", err)
	}
	if params == nil {
		params = map[string]any{}
	}
	return params, nil
}

// watchFile 监听文件所在目录，目标文件被写入或重新创建时调用 onChange，直到 ctx 取消。
// 编辑器保存时通常会连续产生多个事件，200ms 内的事件合并为一次。
func watchFile(ctx context.Context, path string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch directory: %w", err)
	}
	target := filepath.Base(path)

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				debounce = time.After(200 * time.Millisecond)
			}
		case <-debounce:
			debounce = nil
			onChange()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Watcher error: %v\n", err)
		}
	}
}
