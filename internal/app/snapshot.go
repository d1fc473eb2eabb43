package app

import (
	"time"

	"github.com/nexocrm/funil/internal/domain"
)

// SnapshotVersion tags the export format.
const SnapshotVersion = "funil.board.v1"

// Snapshot is a versioned JSON export of one loaded board session. It captures
// what the client has loaded, not the full remote dataset: each stage records
// its authoritative remote count next to the loaded slice.
type Snapshot struct {
	Version    string          `json:"version"`
	ExportedAt time.Time       `json:"exported_at"`
	Pipeline   SnapshotHeader  `json:"pipeline"`
	Search     string          `json:"search,omitempty"`
	Stages     []SnapshotStage `json:"stages"`
}

// SnapshotHeader identifies the exported pipeline.
type SnapshotHeader struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SnapshotStage is one exported column.
type SnapshotStage struct {
	ID            string                `json:"id"`
	Name          string                `json:"name"`
	Color         string                `json:"color,omitempty"`
	Position      int                   `json:"position"`
	IsWinStage    bool                  `json:"is_win_stage,omitempty"`
	IsLossStage   bool                  `json:"is_loss_stage,omitempty"`
	RemoteTotal   int                   `json:"remote_total"`
	LoadedPages   int                   `json:"loaded_pages"`
	Opportunities []SnapshotOpportunity `json:"opportunities"`
}

// SnapshotOpportunity is one exported card.
type SnapshotOpportunity struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	ContactName  string     `json:"contact_name,omitempty"`
	Company      string     `json:"company,omitempty"`
	Value        float64    `json:"value"`
	OwnerName    string     `json:"owner_name,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
	DisplayOrder *int       `json:"display_order,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	WonAt        *time.Time `json:"won_at,omitempty"`
	LostAt       *time.Time `json:"lost_at,omitempty"`
}

// BuildSnapshot renders the loaded session for export.
func BuildSnapshot(b *Board, now time.Time) Snapshot {
	pipeline := b.Pipeline()
	session := b.Session()
	snap := Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: now.UTC(),
		Pipeline:   SnapshotHeader{ID: pipeline.ID, Name: pipeline.Name},
		Search:     session.Search,
		Stages:     make([]SnapshotStage, 0, len(pipeline.Stages)),
	}
	for _, stage := range pipeline.Stages {
		col := SnapshotStage{
			ID:          stage.ID,
			Name:        stage.Name,
			Color:       stage.Color,
			Position:    stage.Position,
			IsWinStage:  stage.IsWinStage,
			IsLossStage: stage.IsLossStage,
			RemoteTotal: b.Pager().RemoteTotal(stage.ID),
			LoadedPages: b.Pager().LoadedPages(stage.ID),
		}
		for _, opp := range b.Store().ByStage(stage.ID) {
			col.Opportunities = append(col.Opportunities, snapshotOpportunity(opp))
		}
		snap.Stages = append(snap.Stages, col)
	}
	return snap
}

func snapshotOpportunity(opp domain.Opportunity) SnapshotOpportunity {
	out := SnapshotOpportunity{
		ID:           opp.ID,
		Title:        opp.Title,
		ContactName:  opp.ContactName,
		Company:      opp.ContactCompany,
		Value:        opp.Value,
		OwnerName:    opp.OwnerName,
		DisplayOrder: opp.DisplayOrder,
		CreatedAt:    opp.CreatedAt,
		WonAt:        opp.WonAt,
		LostAt:       opp.LostAt,
	}
	for _, tag := range opp.Tags {
		out.Tags = append(out.Tags, tag.Name)
	}
	return out
}
