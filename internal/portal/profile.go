package portal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"karmasri/internal/documents"
	"karmasri/internal/form"
	"karmasri/internal/merge"
	"karmasri/internal/spark"
	"karmasri/pkg/models"
)

func (c *Client) cacheKey() string {
	if c.OfficerID != "" {
		return "bundle:" + c.OfficerID
	}
	return "bundle:self:" + c.Token
}

// Bundle returns the profile bundle, from the snapshot when one is held.
func (c *Client) Bundle(ctx context.Context) (models.ProfileBundle, error) {
	var b models.ProfileBundle
	if c.Token == "" {
		return b, ErrNotLoggedIn
	}
	if c.Cache != nil {
		ok, err := c.Cache.Get(c.cacheKey(), &b)
		if err != nil {
			c.Log.Warn("snapshot read failed", zap.Error(err))
		}
		if ok {
			return b, nil
		}
	}
	return c.Refresh(ctx)
}

// Refresh drops the snapshot and loads the bundle from the server.
func (c *Client) Refresh(ctx context.Context) (models.ProfileBundle, error) {
	var b models.ProfileBundle
	if c.Token == "" {
		return b, ErrNotLoggedIn
	}
	if c.Cache != nil {
		if err := c.Cache.Invalidate(c.cacheKey()); err != nil {
			c.Log.Warn("snapshot invalidate failed", zap.Error(err))
		}
	}
	if err := c.doJSON(ctx, http.MethodGet, c.path("/officer/officer"), nil, &b); err != nil {
		return b, err
	}
	if c.Cache != nil {
		if err := c.Cache.Put(c.cacheKey(), b); err != nil {
			c.Log.Warn("snapshot write failed", zap.Error(err))
		}
	}
	return b, nil
}

// Section merges one entity from the bundle.
func (c *Client) Section(ctx context.Context, entity string) ([]merge.DisplayRecord, error) {
	e, ok := merge.Lookup(entity)
	if !ok {
		return nil, fmt.Errorf("portal: unknown entity %q", entity)
	}
	b, err := c.Bundle(ctx)
	if err != nil {
		return nil, err
	}
	return SectionOf(e, b)
}

// SectionOf merges entity e out of a loaded bundle.
func SectionOf(e merge.Entity, b models.ProfileBundle) ([]merge.DisplayRecord, error) {
	local, err := e.DecodeAll(b.OfficerData[e.Name])
	if err != nil {
		return nil, err
	}
	return merge.Merge(e, spark.Section(b.SparkData, e.Name), local), nil
}

// Edit starts a form session over rec. A zero rec starts a new entry.
func (c *Client) Edit(entity string, rec merge.DisplayRecord) (*form.Session, error) {
	p, ok := form.PolicyFor(entity)
	if !ok {
		return nil, fmt.Errorf("portal: unknown entity %q", entity)
	}
	return form.NewSession(p, rec), nil
}

// Save writes the session and returns the reconciled record. Unsaved
// records (including SPARK placeholders) are created, saved ones updated.
// The snapshot is repopulated afterwards.
func (c *Client) Save(ctx context.Context, s *form.Session) (merge.DisplayRecord, error) {
	payload := s.Payload()
	if payload.Empty() {
		return s.Record, ErrNoChanges
	}

	e := s.Policy.Entity
	method, path := http.MethodPost, "/officer/"+e.Name
	if s.Record.IsSaved {
		method, path = http.MethodPut, "/officer/"+e.Name+"/"+url.PathEscape(s.Record.ID)
	}

	var raw []byte
	if err := c.doJSON(ctx, method, c.path(path), payload, &raw); err != nil {
		return s.Record, err
	}
	saved, err := e.DecodeJSON(raw)
	if err != nil {
		return s.Record, err
	}

	// a detached last document must not survive reconciliation; no other
	// field can be cleared, since empty values never reach the payload
	prev := s.Record.Clone()
	if v, ok := payload.UserData["documents"]; ok && merge.IsEmpty(v) {
		delete(prev.Values, "documents")
		delete(prev.FieldSources, "documents")
	}

	rec := merge.Reconcile(e, prev, saved)
	c.afterMutation(ctx)
	return rec, nil
}

// Delete removes a saved record.
func (c *Client) Delete(ctx context.Context, entity string, rec merge.DisplayRecord) error {
	if !rec.IsSaved || merge.IsPlaceholderID(rec.ID) {
		return ErrNotSaved
	}
	path := "/officer/" + entity + "/" + url.PathEscape(rec.ID)
	if err := c.doJSON(ctx, http.MethodDelete, c.path(path), nil, nil); err != nil {
		return err
	}
	c.afterMutation(ctx)
	return nil
}

// Attach uploads files concurrently, appends the ids that succeeded and
// saves the record. Failed uploads are reported in the batch and do not
// undo the successful ones.
func (c *Client) Attach(ctx context.Context, s *form.Session, files []documents.File) (merge.DisplayRecord, documents.Batch, error) {
	up := documents.Uploader{Upload: c.Upload, Limit: 4}
	batch := up.UploadAll(ctx, files)

	for _, f := range batch.Failed() {
		c.Log.Warn("upload failed", zap.String("file", f.Name), zap.Error(f.Err))
	}
	ids := batch.IDs()
	if len(ids) == 0 {
		if len(files) > 0 {
			return s.Record, batch, errors.New("portal: every upload failed")
		}
		return s.Record, batch, nil
	}

	s.AttachDocuments(ids...)
	rec, err := c.Save(ctx, s)
	return rec, batch, err
}

// Detach removes one document id from the record and saves it.
func (c *Client) Detach(ctx context.Context, s *form.Session, id string) (merge.DisplayRecord, error) {
	s.DetachDocument(id)
	return c.Save(ctx, s)
}

// afterMutation replaces the snapshot with the server state. The write
// already succeeded, so failures here are only logged.
func (c *Client) afterMutation(ctx context.Context) {
	if c.Cache == nil {
		return
	}
	if _, err := c.Refresh(ctx); err != nil {
		c.Log.Warn("snapshot refresh failed", zap.Error(err))
	}
}
