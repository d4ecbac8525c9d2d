package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"karmasri/internal/documents"
	"karmasri/internal/form"
	"karmasri/internal/merge"
	"karmasri/internal/portal"
)

// newRecordID selects a blank record in edit.
const newRecordID = "new"

var (
	showJSON   bool
	setArgs    []string
	outputPath string

	showCmd = &cobra.Command{
		Use:       "show <entity>",
		Short:     "Show a merged profile section (training, education, dependents)",
		Args:      cobra.ExactArgs(1),
		ValidArgs: merge.Names(),
		RunE:      runShow,
	}
	refreshCmd = &cobra.Command{
		Use:   "refresh",
		Short: "Drop the local snapshot and reload the profile",
		Args:  cobra.NoArgs,
		RunE:  runRefresh,
	}
	editCmd = &cobra.Command{
		Use:   "edit <entity> <id|new> --set field=value...",
		Short: "Edit a record, completing a SPARK entry or creating a new one",
		Args:  cobra.ExactArgs(2),
		RunE:  runEdit,
	}
	deleteCmd = &cobra.Command{
		Use:   "delete <entity> <id>",
		Short: "Delete a saved record",
		Args:  cobra.ExactArgs(2),
		RunE:  runDelete,
	}
	attachCmd = &cobra.Command{
		Use:   "attach <entity> <id> <file>...",
		Short: "Upload files and attach them to a record",
		Args:  cobra.MinimumNArgs(3),
		RunE:  runAttach,
	}
	detachCmd = &cobra.Command{
		Use:   "detach <entity> <id> <document-id>",
		Short: "Remove a document from a record",
		Args:  cobra.ExactArgs(3),
		RunE:  runDetach,
	}
	downloadCmd = &cobra.Command{
		Use:   "download <document-id>",
		Short: "Download an attached document",
		Args:  cobra.ExactArgs(1),
		RunE:  runDownload,
	}
	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Print profile change events as they happen",
		Args:  cobra.NoArgs,
		RunE:  runWatch,
	}
)

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "print records as JSON")
	editCmd.Flags().StringArrayVar(&setArgs, "set", nil, "field=value to write (repeatable)")
	_ = editCmd.MarkFlagRequired("set")
	downloadCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file (default <document-id>)")
}

func runShow(cmd *cobra.Command, args []string) error {
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.Close()

	recs, err := s.Section(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if showJSON {
		return printJSON(cmd.OutOrStdout(), recs)
	}
	return render(cmd.OutOrStdout(), args[0], recs, time.Now())
}

func runRefresh(cmd *cobra.Command, _ []string) error {
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.Close()

	b, err := s.Refresh(cmd.Context())
	if err != nil {
		return err
	}
	n := 0
	for _, recs := range b.OfficerData {
		n += len(recs)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "profile %s reloaded: %d stored records\n", b.SparkData.PEN, n)
	return nil
}

// openRecord loads the section and starts a form session on record id.
func openRecord(cmd *cobra.Command, s *session, entity, id string) (*form.Session, error) {
	rec := merge.DisplayRecord{}
	if id != newRecordID {
		recs, err := s.Section(cmd.Context(), entity)
		if err != nil {
			return nil, err
		}
		var ok bool
		if rec, ok = findRecord(recs, id); !ok {
			return nil, fmt.Errorf("no %s record %q, see `karmasri show %s`", entity, id, entity)
		}
	}
	return s.Edit(entity, rec)
}

func runEdit(cmd *cobra.Command, args []string) error {
	entity, id := args[0], args[1]
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.Close()

	fs, err := openRecord(cmd, s, entity, id)
	if err != nil {
		return err
	}
	for _, arg := range setArgs {
		field, value, err := parseSet(arg)
		if err != nil {
			return err
		}
		if err := fs.Set(field, value); err != nil {
			if errors.Is(err, form.ErrFieldDisabled) {
				return fmt.Errorf("%w (%s)", err, fs.Decide(field).Rule)
			}
			return err
		}
	}

	rec, err := s.Save(cmd.Context(), fs)
	if errors.Is(err, portal.ErrNoChanges) {
		fmt.Fprintln(cmd.OutOrStdout(), "nothing to save")
		return nil
	}
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), entity, []merge.DisplayRecord{rec}, time.Now())
}

func runDelete(cmd *cobra.Command, args []string) error {
	entity, id := args[0], args[1]
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.Close()

	recs, err := s.Section(cmd.Context(), entity)
	if err != nil {
		return err
	}
	rec, ok := findRecord(recs, id)
	if !ok {
		return fmt.Errorf("no %s record %q", entity, id)
	}
	if err := s.Delete(cmd.Context(), entity, rec); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s %s\n", entity, id)
	return nil
}

func runAttach(cmd *cobra.Command, args []string) error {
	entity, id, paths := args[0], args[1], args[2:]
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.Close()

	fs, err := openRecord(cmd, s, entity, id)
	if err != nil {
		return err
	}
	files := make([]documents.File, 0, len(paths))
	for _, p := range paths {
		files = append(files, documents.LocalFile(p))
	}

	rec, batch, err := s.Attach(cmd.Context(), fs, files)
	for _, f := range batch.Failed() {
		fmt.Fprintf(cmd.ErrOrStderr(), "upload %s failed: %v\n", f.Name, f.Err)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "attached %s\n", strings.Join(batch.IDs(), ", "))
	return render(cmd.OutOrStdout(), entity, []merge.DisplayRecord{rec}, time.Now())
}

func runDetach(cmd *cobra.Command, args []string) error {
	entity, id, docID := args[0], args[1], args[2]
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.Close()

	fs, err := openRecord(cmd, s, entity, id)
	if err != nil {
		return err
	}
	if !documents.Contains(merge.Text(fs.Current["documents"]), docID) {
		return fmt.Errorf("document %q is not attached to %s %s", docID, entity, id)
	}
	rec, err := s.Detach(cmd.Context(), fs, docID)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), entity, []merge.DisplayRecord{rec}, time.Now())
}

func runDownload(cmd *cobra.Command, args []string) error {
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.Close()

	body, err := s.Download(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	out := outputPath
	if out == "" {
		out = args[0]
	}
	if err := os.WriteFile(out, body, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", len(body), out)
	return nil
}

func runWatch(cmd *cobra.Command, _ []string) error {
	q := url.Values{}
	if officerID != "" {
		q.Set("officer_id", officerID)
	}
	wsURL, err := websocketURL(apiURL, "/ws", q)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(cmd.Context(), wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	fmt.Fprintf(cmd.ErrOrStderr(), "connected to %s\n", wsURL)

	go func() {
		<-cmd.Context().Done()
		_ = conn.Close()
	}()
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if cmd.Context().Err() != nil {
				return nil
			}
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(msg))
	}
}
