package cli

import (
	"github.com/spf13/cobra"
)

// NewPhotoCmd создаёт группу команд библиотеки фотографий.
func NewPhotoCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "photo",
		Short: "Browse the photo library",
	}

	cmd.AddCommand(newPhotoListCmd(clientFn, outputFn))

	return cmd
}

func newPhotoListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List photos, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			photos, err := client.ListPhotos()
			if err != nil {
				return err
			}

			headers := []string{"FILENAME", "TIMESTAMP", "PROMPT"}
			rows := make([][]string, len(photos))
			for i, p := range photos {
				rows[i] = []string{p.Filename, p.Timestamp, p.Prompt}
			}

			out.Print(headers, rows, photos)
			return nil
		},
	}
}
