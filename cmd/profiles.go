package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nabeeladzan/lxfu/internal/nameutil"
	"github.com/nabeeladzan/lxfu/internal/store"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Manage enrolled face profiles",
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled profiles and their sample counts",
	Args:  cobra.NoArgs,
	RunE:  runProfilesList,
}

var profilesDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete one enrolled profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfilesDelete,
}

var profilesClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every enrolled profile",
	Args:  cobra.NoArgs,
	RunE:  runProfilesClear,
}

func init() {
	rootCmd.AddCommand(profilesCmd)
	profilesCmd.AddCommand(profilesListCmd)
	profilesCmd.AddCommand(profilesDeleteCmd)
	profilesCmd.AddCommand(profilesClearCmd)

	profilesClearCmd.Flags().Bool("yes", false, "Skip confirmation prompt")
}

func runProfilesList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.DBPath, store.ReadOnly)
	if err != nil {
		fmt.Println("No profiles enrolled.")
		return nil
	}
	defer st.Close()

	all, err := st.GetAll()
	if err != nil {
		return fmt.Errorf("failed to load profiles: %w", err)
	}
	if len(all) == 0 {
		fmt.Println("No profiles enrolled.")
		return nil
	}

	names, err := st.Names()
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSAMPLES")
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%d\n", name, len(all[name]))
	}
	return w.Flush()
}

func runProfilesDelete(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.DBPath, store.ReadWrite)
	if err != nil {
		return fmt.Errorf("failed to open profile store: %w", err)
	}
	defer st.Close()

	name := args[0]
	names, err := st.Names()
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}
	if resolved, ok := nameutil.Resolve(name, names); ok {
		name = resolved
	}

	found, err := st.Delete(name)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	if !found {
		return fmt.Errorf("no profile named %q", args[0])
	}
	fmt.Printf("Deleted profile %q\n", name)
	return nil
}

func runProfilesClear(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.DBPath, store.ReadWrite)
	if err != nil {
		return fmt.Errorf("failed to open profile store: %w", err)
	}
	defer st.Close()

	n, err := st.Size()
	if err != nil {
		return fmt.Errorf("failed to count profiles: %w", err)
	}
	if n == 0 {
		fmt.Println("No profiles enrolled.")
		return nil
	}

	if !mustGetBool(cmd, "yes") {
		fmt.Printf("This will delete all %d profile(s). Continue? [y/N]: ", n)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := st.Clear(); err != nil {
		return fmt.Errorf("failed to clear profiles: %w", err)
	}
	fmt.Printf("Deleted %d profile(s)\n", n)
	return nil
}
