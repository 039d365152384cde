package cmd

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/crmx/internal/attachments"
)

var attachName string

var attachCmd = &cobra.Command{
	Use:   "attach <screen> <id> <file>",
	Short: "Upload a file and attach it to a record",
	Long: `Upload a file and attach it to a record.

attachments.provider selects where the bytes go: "gateway" posts them to
the backend, "s3" puts them in attachments.bucket and registers the object
with the backend.`,
	Example: `  crmx attach clients 65f1c0ffee ./escrituras.pdf
  crmx attach leads lead-7 ./ine.jpg --name identificacion.jpg`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := loadApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.close()
		screen, err := a.screen(args[0])
		if err != nil {
			return err
		}
		tab, err := resolveTab(screen, recordTab)
		if err != nil {
			return err
		}

		f, err := os.Open(args[2])
		if err != nil {
			return err
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return err
		}
		if info.IsDir() {
			return fmt.Errorf("%s is a directory", args[2])
		}
		name := attachName
		if name == "" {
			name = filepath.Base(args[2])
		}
		contentType, err := detectContentType(f, name)
		if err != nil {
			return err
		}

		uploader, err := attachments.New(ctx, a.cfg.Attachments, a.backend)
		if err != nil {
			return err
		}
		att, err := uploader.Upload(ctx, attachments.File{
			Tab:         tab,
			RecordID:    args[1],
			Name:        name,
			Size:        info.Size(),
			ContentType: contentType,
			Body:        f,
		})
		if err != nil {
			return err
		}
		run := runSettings(ctx)
		if run.Output != "table" {
			return printValue(cmd.OutOrStdout(), run.Output, att)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Attached %s (%d bytes) to %s %s\n", att.Name, att.Size, tab, args[1])
		return nil
	},
}

// detectContentType uses the extension, then sniffs the first bytes. The
// reader is rewound.
func detectContentType(r io.ReadSeeker, name string) (string, error) {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct, nil
	}
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(head[:n]), nil
}

func init() { //nolint:gochecknoinits
	attachCmd.Flags().StringVar(&recordTab, "tab", "", "tab of the record (default: the screen's default tab)")
	attachCmd.Flags().StringVar(&attachName, "name", "", "file name to store (default: the local name)")
	rootCmd.AddCommand(attachCmd)
}
