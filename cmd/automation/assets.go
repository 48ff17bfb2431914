package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pkg.world.dev/world-engine/automation/asset"
	"pkg.world.dev/world-engine/automation/content"
)

const flagWorldsOnly = "worlds"

func newAssetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "Index and look up content assets",
	}
	cmd.AddCommand(newAssetsIndexCmd(), newAssetsFindCmd())
	return cmd
}

func newAssetsIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Index every content mount into the asset registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			n, err := s.index(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("indexed %d packages\n", n)
			return nil
		},
	}
}

func newAssetsFindCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find NAME",
		Short: "Resolve a long package name or a short name over the asset paths",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			worldsOnly, err := cmd.Flags().GetBool(flagWorldsOnly)
			if err != nil {
				return err
			}
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			if _, err := s.index(cmd.Context()); err != nil {
				return err
			}

			var (
				required  content.PackageFlags
				classPath string
			)
			if worldsOnly {
				required, classPath = content.PackageContainsMap, asset.WorldClassPath
			}
			r := s.resolver()
			name := args[0]
			var d asset.Data
			if content.IsValidLongPackageName(name) {
				d, err = r.FindByPath(cmd.Context(), name, required, classPath)
			} else {
				d, err = r.FindByName(cmd.Context(), name, required, classPath)
			}
			if err != nil {
				return err
			}
			line := fmt.Sprintf("%s %s %s", d.ObjectPath(), d.ClassPath, d.PackageFlags)
			if d.IsRedirector() {
				line += " -> " + d.Redirect
			}
			cmd.Println(line)
			return nil
		},
	}
	cmd.Flags().Bool(flagWorldsOnly, false, "only match world assets in map packages")
	return cmd
}
