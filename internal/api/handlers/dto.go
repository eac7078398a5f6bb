// dto.go — структуры ответов API и маппинг из доменных моделей.
package handlers

import (
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/gometastore/internal/domain/model"
	"github.com/bigkaa/gometastore/internal/domain/schema"
	"github.com/bigkaa/gometastore/internal/service"
)

type userResponse struct {
	ID         uuid.UUID `json:"id"`
	SiteID     string    `json:"site_id"`
	Email      string    `json:"email"`
	Fullname   string    `json:"fullname"`
	GroupID    uuid.UUID `json:"group_id"`
	Enabled    bool      `json:"enabled"`
	SiteAdmin  bool      `json:"site_admin"`
	GroupAdmin bool      `json:"group_admin"`
	SiteRead   bool      `json:"site_read"`
}

func mapUser(u *model.User) userResponse {
	return userResponse{
		ID:         u.ID,
		SiteID:     u.SiteID,
		Email:      u.Email,
		Fullname:   u.Fullname,
		GroupID:    u.GroupID,
		Enabled:    u.Enabled,
		SiteAdmin:  u.SiteAdmin,
		GroupAdmin: u.GroupAdmin,
		SiteRead:   u.SiteRead,
	}
}

type groupResponse struct {
	ID     uuid.UUID `json:"id"`
	SiteID string    `json:"site_id"`
	Name   string    `json:"name"`
}

func mapGroup(g *model.Group) groupResponse {
	return groupResponse{ID: g.ID, SiteID: g.SiteID, Name: g.Name}
}

type metadatumResponse struct {
	ID               uuid.UUID  `json:"id"`
	Name             string     `json:"name"`
	Mandatory        bool       `json:"mandatory"`
	Ordinal          int        `json:"ordinal"`
	IsFile           bool       `json:"is_file"`
	Regexp           *string    `json:"regexp"`
	LintMessage      *string    `json:"lint_message"`
	DatetimeFmt      *string    `json:"datetime_fmt"`
	SubmissionUnique bool       `json:"submission_unique"`
	SiteUnique       bool       `json:"site_unique"`
	ServiceID        *uuid.UUID `json:"service_id,omitempty"`
}

func mapMetadatum(md *model.MetaDatum) metadatumResponse {
	return metadatumResponse{
		ID:               md.ID,
		Name:             md.Name,
		Mandatory:        md.Mandatory,
		Ordinal:          md.Ordinal,
		IsFile:           md.IsFile,
		Regexp:           md.Regexp,
		LintMessage:      md.LintMessage,
		DatetimeFmt:      md.DatetimeFmt,
		SubmissionUnique: md.SubmissionUnique,
		SiteUnique:       md.SiteUnique,
		ServiceID:        md.ServiceID,
	}
}

type metadatasetResponse struct {
	ID           uuid.UUID          `json:"id"`
	SiteID       string             `json:"site_id"`
	UserID       uuid.UUID          `json:"user_id"`
	GroupID      uuid.UUID          `json:"group_id"`
	SubmissionID *uuid.UUID         `json:"submission_id"`
	Record       map[string]*string `json:"record"`
}

func mapMetadataset(m *model.MetaDataSet) metadatasetResponse {
	record := make(map[string]*string, len(m.Records))
	for _, rec := range m.Records {
		record[rec.MetadatumName] = rec.Value
	}
	return metadatasetResponse{
		ID:           m.ID,
		SiteID:       m.SiteID,
		UserID:       m.UserID,
		GroupID:      m.GroupID,
		SubmissionID: m.SubmissionID,
		Record:       record,
	}
}

type fieldErrorResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type pendingResponse struct {
	Metadataset metadatasetResponse  `json:"metadataset"`
	Errors      []fieldErrorResponse `json:"errors"`
}

func mapPending(p *service.PendingReport) pendingResponse {
	errs := make([]fieldErrorResponse, 0, len(p.Errors))
	for _, fe := range p.Errors {
		errs = append(errs, mapFieldError(fe))
	}
	return pendingResponse{
		Metadataset: mapMetadataset(p.Metadataset),
		Errors:      errs,
	}
}

func mapFieldError(fe schema.FieldError) fieldErrorResponse {
	return fieldErrorResponse{Field: fe.Field, Message: fe.Message}
}

type fileResponse struct {
	ID              uuid.UUID `json:"id"`
	SiteID          string    `json:"site_id"`
	Name            string    `json:"name"`
	Checksum        string    `json:"checksum"`
	Filesize        *int64    `json:"filesize"`
	ContentUploaded bool      `json:"content_uploaded"`
	UserID          uuid.UUID `json:"user_id"`
	GroupID         uuid.UUID `json:"group_id"`
}

func mapFile(f *model.File) fileResponse {
	return fileResponse{
		ID:              f.ID,
		SiteID:          f.SiteID,
		Name:            f.Name,
		Checksum:        f.Checksum,
		Filesize:        f.Filesize,
		ContentUploaded: f.ContentUploaded,
		UserID:          f.UserID,
		GroupID:         f.GroupID,
	}
}

type submissionResponse struct {
	ID      uuid.UUID `json:"id"`
	SiteID  string    `json:"site_id"`
	Label   *string   `json:"label"`
	Date    time.Time `json:"date"`
	GroupID uuid.UUID `json:"group_id"`
}

func mapSubmission(sub *model.Submission) submissionResponse {
	return submissionResponse{
		ID:      sub.ID,
		SiteID:  sub.SiteID,
		Label:   sub.Label,
		Date:    sub.Date,
		GroupID: sub.GroupID,
	}
}

type appSettingResponse struct {
	Key   string `json:"key"`
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

func mapAppSetting(s *model.AppSetting) appSettingResponse {
	return appSettingResponse{
		Key:   s.Key,
		Kind:  string(s.Value.Kind),
		Value: s.Value.Encode(),
	}
}
