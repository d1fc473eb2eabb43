package crm

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/nexocrm/funil/internal/app"
	"github.com/nexocrm/funil/internal/domain"
)

// money decodes a JSON number that the server may serialize as either a bare
// number or a quoted decimal string. Postgres numeric columns arrive as
// strings.
type money float64

// UnmarshalJSON accepts "1234.56", 1234.56, and null.
func (m *money) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		*m = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	if s == "" {
		*m = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("crm: parse money %q: %w", s, err)
	}
	*m = money(v)
	return nil
}

// MarshalJSON always emits a bare number.
func (m money) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(m))
}

type stageDTO struct {
	ID          string `json:"id"`
	PipelineID  string `json:"pipeline_id"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	Position    int    `json:"position"`
	IsWinStage  bool   `json:"is_win_stage"`
	IsLossStage bool   `json:"is_loss_stage"`
}

func (d stageDTO) toDomain() domain.Stage {
	return domain.Stage{
		ID:          d.ID,
		PipelineID:  d.PipelineID,
		Name:        d.Name,
		Color:       d.Color,
		Position:    d.Position,
		IsWinStage:  d.IsWinStage,
		IsLossStage: d.IsLossStage,
	}
}

type pipelineDTO struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Stages      []stageDTO `json:"stages"`
}

func (d pipelineDTO) toDomain() domain.Pipeline {
	p := domain.Pipeline{ID: d.ID, Name: d.Name, Description: d.Description}
	for _, s := range d.Stages {
		p.Stages = append(p.Stages, s.toDomain())
	}
	return p
}

type tagDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type opportunityDTO struct {
	ID          string `json:"id"`
	PipelineID  string `json:"pipeline_id"`
	StageID     string `json:"stage_id"`
	Title       string `json:"title"`
	Value       money  `json:"value"`
	OwnerUserID string `json:"owner_user_id"`
	OwnerName   string `json:"owner_name"`

	ContactID       string `json:"contact_id"`
	ContactName     string `json:"contact_name"`
	ContactTitle    string `json:"contact_title"`
	ContactCompany  string `json:"contact_company"`
	ContactEmail    string `json:"contact_email"`
	ContactPhone    string `json:"contact_phone"`
	ContactLocation string `json:"contact_location"`
	ContactPicture  string `json:"contact_picture"`

	Source string   `json:"source"`
	Notes  string   `json:"notes"`
	Tags   []tagDTO `json:"tags"`

	LossReasonID string `json:"loss_reason_id"`
	LossNotes    string `json:"loss_notes"`

	DisplayOrder *int `json:"display_order"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	WonAt     *time.Time `json:"won_at"`
	LostAt    *time.Time `json:"lost_at"`
}

func (d opportunityDTO) toDomain() domain.Opportunity {
	opp := domain.Opportunity{
		ID:              d.ID,
		PipelineID:      d.PipelineID,
		StageID:         d.StageID,
		Title:           d.Title,
		Value:           float64(d.Value),
		OwnerUserID:     d.OwnerUserID,
		OwnerName:       d.OwnerName,
		ContactID:       d.ContactID,
		ContactName:     d.ContactName,
		ContactTitle:    d.ContactTitle,
		ContactCompany:  d.ContactCompany,
		ContactEmail:    d.ContactEmail,
		ContactPhone:    d.ContactPhone,
		ContactLocation: d.ContactLocation,
		ContactPicture:  d.ContactPicture,
		Source:          d.Source,
		Notes:           d.Notes,
		LossReasonID:    d.LossReasonID,
		LossNotes:       d.LossNotes,
		DisplayOrder:    d.DisplayOrder,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
		WonAt:           d.WonAt,
		LostAt:          d.LostAt,
	}
	for _, tag := range d.Tags {
		opp.Tags = append(opp.Tags, domain.Tag{ID: tag.ID, Name: tag.Name, Color: tag.Color})
	}
	return opp
}

// kanbanStageDTO is one kanban column: the stage fields arrive inline beside
// the per-stage aggregates, not nested under a key.
type kanbanStageDTO struct {
	stageDTO
	Count         int              `json:"count"`
	TotalValue    money            `json:"total_value"`
	Opportunities []opportunityDTO `json:"opportunities"`
}

func (d kanbanStageDTO) toApp() app.KanbanStage {
	col := app.KanbanStage{
		Stage:      d.stageDTO.toDomain(),
		Count:      d.Count,
		TotalValue: float64(d.TotalValue),
	}
	for _, opp := range d.Opportunities {
		col.Opportunities = append(col.Opportunities, opp.toDomain())
	}
	return col
}

type paginationDTO struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type opportunityPageDTO struct {
	Opportunities []opportunityDTO `json:"opportunities"`
	Pagination    paginationDTO    `json:"pagination"`
}

func (d opportunityPageDTO) toApp() app.OpportunityPage {
	page := app.OpportunityPage{
		Page:       d.Pagination.Page,
		Limit:      d.Pagination.Limit,
		Total:      d.Pagination.Total,
		TotalPages: d.Pagination.TotalPages,
	}
	for _, opp := range d.Opportunities {
		page.Opportunities = append(page.Opportunities, opp.toDomain())
	}
	return page
}

// Keyed wrappers: the server nests every payload under a resource key inside
// the envelope's data field.
type pipelinesDataDTO struct {
	Pipelines []pipelineDTO `json:"pipelines"`
}

type pipelineDataDTO struct {
	Pipeline pipelineDTO `json:"pipeline"`
}

type kanbanDataDTO struct {
	Stages []kanbanStageDTO `json:"stages"`
}

type opportunityDataDTO struct {
	Opportunity opportunityDTO `json:"opportunity"`
}

type reasonsDataDTO struct {
	Reasons []discardReasonDTO `json:"reasons"`
}

type productsDataDTO struct {
	Products []productDTO `json:"products"`
}

type productDataDTO struct {
	Product productDTO `json:"product"`
}

type moveRequestDTO struct {
	StageID      string   `json:"stage_id"`
	Value        *float64 `json:"value,omitempty"`
	Notes        string   `json:"notes,omitempty"`
	LossReasonID string   `json:"loss_reason_id,omitempty"`
	LossNotes    string   `json:"loss_notes,omitempty"`
}

type displayOrderDTO struct {
	ID           string `json:"id"`
	DisplayOrder int    `json:"display_order"`
}

type reorderRequestDTO struct {
	Orders []displayOrderDTO `json:"orders"`
}

type opportunityInputDTO struct {
	PipelineID  string   `json:"pipeline_id,omitempty"`
	Title       string   `json:"title"`
	Value       float64  `json:"value"`
	StageID     string   `json:"stage_id,omitempty"`
	ContactID   string   `json:"contact_id,omitempty"`
	OwnerUserID string   `json:"owner_user_id,omitempty"`
	Notes       string   `json:"notes,omitempty"`
	TagIDs      []string `json:"tag_ids,omitempty"`
}

type discardReasonDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	DisplayOrder int    `json:"display_order"`
	IsActive     bool   `json:"is_active"`
}

func (d discardReasonDTO) toDomain() domain.DiscardReason {
	return domain.DiscardReason{
		ID:           d.ID,
		Name:         d.Name,
		Description:  d.Description,
		DisplayOrder: d.DisplayOrder,
		IsActive:     d.IsActive,
	}
}

type productDTO struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	DefaultPrice      money  `json:"default_price"`
	PaymentConditions string `json:"payment_conditions"`
	IsActive          bool   `json:"is_active"`
}

func (d productDTO) toDomain() domain.Product {
	return domain.Product{
		ID:                d.ID,
		Name:              d.Name,
		DefaultPrice:      float64(d.DefaultPrice),
		PaymentConditions: d.PaymentConditions,
		IsActive:          d.IsActive,
	}
}

type productInputDTO struct {
	Name         string `json:"name"`
	DefaultPrice money  `json:"default_price"`
	IsActive     bool   `json:"is_active"`
}
