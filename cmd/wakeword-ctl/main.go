package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wakeword-data/wakeword-data/internal/batch"
	"github.com/wakeword-data/wakeword-data/internal/client"
	"github.com/wakeword-data/wakeword-data/internal/schema"
)

var (
	serverURL string
	adminURL  string
	output    string
	timeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "wakeword-ctl",
	Short: "Wake word training data client",
	Long: `wakeword-ctl uploads, lists and downloads wake word samples on a
wakeword-server.

Commands:
  upload    Upload labeled recordings
  list      List stored samples
  download  Download a stored sample
  stat      Show a stored sample's metadata (admin)
  delete    Delete a stored sample (admin)
  health    Check server health
  bench     Measure upload latency`,
	SilenceUsage: true,
}

var uploadCmd = &cobra.Command{
	Use:   "upload [file...]",
	Short: "Upload labeled recordings",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runUpload,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored samples",
	RunE:  runList,
}

var downloadCmd = &cobra.Command{
	Use:   "download [key]",
	Short: "Download a stored sample",
	Args:  cobra.ExactArgs(1),
	RunE:  runDownload,
}

var statCmd = &cobra.Command{
	Use:   "stat [key]",
	Short: "Show a stored sample's metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runStat,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [key...]",
	Short: "Delete stored samples",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDelete,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check server health",
	RunE:  runHealth,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:8080", "Server URL")
	rootCmd.PersistentFlags().StringVar(&adminURL, "admin", "http://localhost:9090", "Admin URL serving /healthz and /samples")
	rootCmd.PersistentFlags().StringVar(&output, "format", "text", "Output format: text, json")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")

	uploadCmd.Flags().String("wake-word", "", "Wake word spoken in the recordings")
	uploadCmd.Flags().String("age", "", "Speaker age bracket")
	uploadCmd.Flags().String("gender", "", "Speaker gender")
	uploadCmd.Flags().String("language", "", "Speaker language")
	uploadCmd.Flags().String("accent", "", "Speaker accent within the language")
	uploadCmd.Flags().String("content-type", "", "Content type (default: from file extension)")
	uploadCmd.Flags().Int("concurrency", 4, "Parallel uploads")
	_ = uploadCmd.MarkFlagRequired("wake-word")

	listCmd.Flags().String("prefix", "", "Only list keys with this prefix")
	listCmd.Flags().Int("limit", 0, "Maximum entries per page (server default when 0)")
	listCmd.Flags().String("cursor", "", "Continue from a previous page")
	listCmd.Flags().String("delimiter", "", "Group keys sharing the text up to this delimiter")
	listCmd.Flags().Bool("all", false, "Follow cursors until every page is listed")

	downloadCmd.Flags().StringP("output", "o", "", "Destination file (default: the key, - for stdout)")

	rootCmd.AddCommand(uploadCmd, listCmd, downloadCmd, statCmd, deleteCmd, healthCmd)
}

func newClient() *client.Client {
	return client.New(client.Config{URL: serverURL, AdminURL: adminURL, Timeout: timeout})
}

func runUpload(cmd *cobra.Command, args []string) error {
	params := client.UploadParams{}
	params.WakeWord, _ = cmd.Flags().GetString("wake-word")
	params.Age, _ = cmd.Flags().GetString("age")
	params.Gender, _ = cmd.Flags().GetString("gender")
	params.Language, _ = cmd.Flags().GetString("language")
	params.Accent, _ = cmd.Flags().GetString("accent")
	contentType, _ := cmd.Flags().GetString("content-type")
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	c := newClient()
	manager := batch.NewManager(batch.Config{Workers: concurrency})
	defer manager.Shutdown(context.Background())

	results := make([]*schema.UploadResponse, len(args))
	errs := manager.Each(cmd.Context(), len(args), func(ctx context.Context, i int) error {
		resp, err := uploadFile(ctx, c, args[i], contentType, params)
		results[i] = resp
		return err
	})

	failed := 0
	for i, path := range args {
		if errs[i] != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", path, errs[i])
			continue
		}
		if output == "json" {
			printJSON(results[i])
			continue
		}
		fmt.Printf("✓ %s → %s\n", path, results[i].Key)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(args))
	}
	return nil
}

func uploadFile(ctx context.Context, c *client.Client, path, contentType string, params client.UploadParams) (*schema.UploadResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	if contentType == "" {
		contentType = contentTypeFor(path)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.Upload(ctx, f, info.Size(), contentType, params)
}

// contentTypeFor guesses an audio content type from the file extension.
func contentTypeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".webm", ".ogg", ".mp4", ".wav":
		return "audio/" + ext[1:]
	case ".m4a":
		return "audio/mp4"
	case ".opus", ".oga":
		return "audio/ogg"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

func runList(cmd *cobra.Command, args []string) error {
	params := client.ListParams{}
	params.Prefix, _ = cmd.Flags().GetString("prefix")
	params.Limit, _ = cmd.Flags().GetInt("limit")
	params.Cursor, _ = cmd.Flags().GetString("cursor")
	params.Delimiter, _ = cmd.Flags().GetString("delimiter")
	all, _ := cmd.Flags().GetBool("all")

	c := newClient()
	ctx := cmd.Context()

	printPage := func(page *schema.ListResponse) error {
		if output == "json" {
			printJSON(page)
			return nil
		}
		for _, prefix := range page.DelimitedPrefixes {
			fmt.Printf("%-64s %8s\n", prefix, "PRE")
		}
		for _, obj := range page.Objects {
			fmt.Printf("%-64s %8d  %s  %s\n", obj.Key, obj.Size, obj.Uploaded, obj.HTTPMetadata.ContentType)
		}
		return nil
	}

	if all {
		return c.ListAll(ctx, params, printPage)
	}

	page, err := c.List(ctx, params)
	if err != nil {
		return err
	}
	if err := printPage(page); err != nil {
		return err
	}
	if output != "json" && page.Truncated {
		fmt.Printf("\nMore results: --cursor %s\n", page.Cursor)
	}
	return nil
}

func runDownload(cmd *cobra.Command, args []string) error {
	key := args[0]
	dest, _ := cmd.Flags().GetString("output")

	d, err := newClient().Download(cmd.Context(), key)
	if err != nil {
		return err
	}
	defer d.Body.Close()

	if dest == "-" {
		_, err := io.Copy(os.Stdout, d.Body)
		return err
	}
	if dest == "" {
		dest = filepath.Base(d.Filename)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	n, err := io.Copy(f, d.Body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	fmt.Fprintf(os.Stderr, "✓ %s (%d bytes, %s)\n", dest, n, d.ContentType)
	return nil
}

func runStat(cmd *cobra.Command, args []string) error {
	info, err := newClient().Stat(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if output == "json" {
		printJSON(info)
		return nil
	}
	fmt.Printf("Key:          %s\n", info.Key)
	fmt.Printf("Size:         %d\n", info.Size)
	fmt.Printf("Uploaded:     %s\n", info.Uploaded)
	fmt.Printf("Content-Type: %s\n", info.HTTPMetadata.ContentType)
	fmt.Printf("ETag:         %s\n", info.ETag)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	c := newClient()
	failed := 0
	for _, key := range args {
		if err := c.Delete(cmd.Context(), key); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", key, err)
			continue
		}
		fmt.Printf("✓ deleted %s\n", key)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d deletes failed", failed, len(args))
	}
	return nil
}

func runHealth(cmd *cobra.Command, args []string) error {
	if err := newClient().Health(cmd.Context()); err != nil {
		return err
	}
	if output == "json" {
		printJSON(schema.HealthResponse{Status: "ok"})
		return nil
	}
	fmt.Println("Status: ok")
	return nil
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
