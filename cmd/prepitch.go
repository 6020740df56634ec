package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/helmcode/arqv30-client/pkg/formatter"
	"github.com/helmcode/arqv30-client/pkg/model"
	"github.com/helmcode/arqv30-client/pkg/render"
)

var (
	prepitchAvatarFile string
	prepitchStructure  string
	prepitchEmotion    string
)

func NewPrepitchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prepitch",
		Short: "Generate an invisible pre-pitch from avatar data",
		Long: `Generate an invisible pre-pitch for an avatar.

Avatar data is read from --avatar, a JSON file holding either the avatar
object or a whole analysis result (its "avatars" section is used). Without
--avatar the avatar of the last completed analysis is used.

Examples:
  arqv30 prepitch
  arqv30 prepitch --avatar ./arqv30_analysis_session_1.json --emotion urgencia`,
		Args: cobra.NoArgs,
		RunE: runPrepitch,
	}

	cmd.Flags().StringVar(&prepitchAvatarFile, "avatar", "", "JSON file with avatar data or an analysis result")
	cmd.Flags().StringVar(&prepitchStructure, "structure", "", "Pitch structure (backend default: classica)")
	cmd.Flags().StringVar(&prepitchEmotion, "emotion", "", "Target emotion (backend default: transformacao)")
	return cmd
}

func runPrepitch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var avatar map[string]any
	if prepitchAvatarFile != "" {
		avatar, err = readAvatarFile(prepitchAvatarFile)
		if err != nil {
			return err
		}
	} else {
		id, result, ok, err := a.store.LastResult(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no previous analysis found; pass --avatar FILE")
		}
		avatar = avatarOf(result)
		if avatar == nil {
			return fmt.Errorf("analysis %s has no avatar data", id)
		}
	}

	s := newSpinner(" Gerando pré-pitch...")
	s.Start()
	resp, err := a.client.GeneratePrepitch(ctx, model.PrepitchRequest{
		AvatarData:     avatar,
		PitchStructure: prepitchStructure,
		TargetEmotion:  prepitchEmotion,
	})
	s.Stop()
	if err != nil {
		return fmt.Errorf("pre-pitch generation failed: %w", err)
	}
	printSuccess("Pré-pitch gerado")
	return formatter.DisplayPrepitch(cmd.OutOrStdout(), resp, outputFormat)
}

func readAvatarFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read avatar file: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode avatar file: %w", err)
	}
	if avatar := avatarOf(m); avatar != nil {
		return avatar, nil
	}
	return m, nil
}

// avatarOf returns the avatar section of an analysis result, if present.
func avatarOf(result map[string]any) map[string]any {
	if avatar, ok := result[render.SectionAvatar].(map[string]any); ok && len(avatar) > 0 {
		return avatar
	}
	return nil
}
