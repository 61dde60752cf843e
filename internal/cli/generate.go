package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewGenerateCmd создаёт группу команд генерации контента.
func NewGenerateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate photos, prompts and captions",
	}

	cmd.AddCommand(
		newGeneratePhotoCmd(clientFn, outputFn),
		newGeneratePromptCmd(clientFn, outputFn),
		newGenerateTextCmd(clientFn, outputFn),
	)

	return cmd
}

func newGeneratePhotoCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var width, height int
	var model string
	var seed int64

	cmd := &cobra.Command{
		Use:   "photo PROMPT",
		Short: "Generate a photo and save it to the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			photo, err := client.GeneratePhoto(GeneratePhotoRequest{
				Prompt: args[0],
				Width:  width,
				Height: height,
				Model:  model,
				Seed:   seed,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Photo saved: %s", photo.Filename))
			out.Print(
				[]string{"FILENAME", "PROMPT"},
				[][]string{{photo.Filename, photo.Prompt}},
				photo,
			)
			return nil
		},
	}

	cmd.Flags().IntVar(&width, "width", 0, "Image width (default 1024)")
	cmd.Flags().IntVar(&height, "height", 0, "Image height (default 1024)")
	cmd.Flags().StringVar(&model, "model", "", "Image model")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Generation seed")

	return cmd
}

func newGeneratePromptCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "prompt TOPIC",
		Short: "Generate a visual image prompt from a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			prompt, err := client.GeneratePrompt(args[0])
			if err != nil {
				return err
			}

			out.Print([]string{"PROMPT"}, [][]string{{prompt.Prompt}}, prompt)
			return nil
		},
	}
}

func newGenerateTextCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var size string
	var hashtags bool
	var hashtagCount int

	cmd := &cobra.Command{
		Use:   "text TOPIC",
		Short: "Generate a post caption from a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			caption, err := client.GenerateText(GenerateTextRequest{
				Topic:        args[0],
				Size:         size,
				AddHashtags:  hashtags,
				HashtagCount: hashtagCount,
			})
			if err != nil {
				return err
			}

			out.Print([]string{"CAPTION"}, [][]string{{caption.Caption}}, caption)
			return nil
		},
	}

	cmd.Flags().StringVar(&size, "size", "medium", "Caption size: short, medium, long")
	cmd.Flags().BoolVar(&hashtags, "hashtags", false, "Append hashtags")
	cmd.Flags().IntVar(&hashtagCount, "hashtag-count", 0, "How many hashtags to append")

	return cmd
}
