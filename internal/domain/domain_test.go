package domain

import (
	"errors"
	"testing"
	"time"
)

// TestNewStage verifies behavior for the covered scenario.
func TestNewStage(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		pipelineID string
		stageName  string
		position   int
		wantErr    error
	}{
		{name: "valid", id: "s1", pipelineID: "p1", stageName: "Novo", position: 0},
		{name: "trims whitespace", id: "  s1 ", pipelineID: " p1", stageName: " Novo ", position: 2},
		{name: "empty id", id: "", pipelineID: "p1", stageName: "Novo", wantErr: ErrInvalidID},
		{name: "empty pipeline id", id: "s1", pipelineID: " ", stageName: "Novo", wantErr: ErrInvalidID},
		{name: "empty name", id: "s1", pipelineID: "p1", stageName: "  ", wantErr: ErrInvalidName},
		{name: "negative position", id: "s1", pipelineID: "p1", stageName: "Novo", position: -1, wantErr: ErrInvalidStage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stage, err := NewStage(tt.id, tt.pipelineID, tt.stageName, "#aabbcc", tt.position)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NewStage() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewStage() error = %v", err)
			}
			if stage.ID != "s1" || stage.PipelineID != "p1" || stage.Name != "Novo" {
				t.Fatalf("unexpected stage %#v", stage)
			}
			if stage.Position != tt.position {
				t.Fatalf("Position = %d, want %d", stage.Position, tt.position)
			}
		})
	}
}

// TestStageTerminal verifies behavior for the covered scenario.
func TestStageTerminal(t *testing.T) {
	if (Stage{}).Terminal() {
		t.Fatal("open stage reported terminal")
	}
	if !(Stage{IsWinStage: true}).Terminal() {
		t.Fatal("win stage not terminal")
	}
	if !(Stage{IsLossStage: true}).Terminal() {
		t.Fatal("loss stage not terminal")
	}
}

// TestNewDealItem verifies behavior for the covered scenario.
func TestNewDealItem(t *testing.T) {
	tests := []struct {
		name      string
		quantity  float64
		unitPrice float64
		wantErr   error
		wantTotal float64
	}{
		{name: "valid", quantity: 2, unitPrice: 1250.5, wantTotal: 2501},
		{name: "fractional quantity", quantity: 0.5, unitPrice: 1000, wantTotal: 500},
		{name: "zero contributes zero", quantity: 0, unitPrice: 99, wantTotal: 0},
		{name: "negative quantity", quantity: -1, unitPrice: 10, wantErr: ErrInvalidQuantity},
		{name: "negative price", quantity: 1, unitPrice: -10, wantErr: ErrInvalidPrice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := NewDealItem(" prod-1 ", tt.quantity, tt.unitPrice)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NewDealItem() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewDealItem() error = %v", err)
			}
			if item.ProductID != "prod-1" {
				t.Fatalf("ProductID = %q", item.ProductID)
			}
			if item.Total() != tt.wantTotal {
				t.Fatalf("Total() = %v, want %v", item.Total(), tt.wantTotal)
			}
		})
	}
}

// TestDealTotal verifies behavior for the covered scenario.
func TestDealTotal(t *testing.T) {
	if got := DealTotal(nil); got != 0 {
		t.Fatalf("DealTotal(nil) = %v, want 0", got)
	}
	items := []DealItem{
		{Quantity: 1, UnitPrice: 1500},
		{Quantity: 3, UnitPrice: 200},
	}
	if got := DealTotal(items); got != 2100 {
		t.Fatalf("DealTotal() = %v, want 2100", got)
	}
}

// TestOpportunityDisplayName verifies behavior for the covered scenario.
func TestOpportunityDisplayName(t *testing.T) {
	opp := Opportunity{Title: "Proposta Q3", ContactName: "Ana Lima"}
	if got := opp.DisplayName(); got != "Ana Lima" {
		t.Fatalf("DisplayName() = %q, want contact name", got)
	}
	opp.ContactName = "   "
	if got := opp.DisplayName(); got != "Proposta Q3" {
		t.Fatalf("DisplayName() = %q, want title fallback", got)
	}
}

// TestOpportunityClosed verifies behavior for the covered scenario.
func TestOpportunityClosed(t *testing.T) {
	now := time.Now()
	if (Opportunity{}).Closed() {
		t.Fatal("open opportunity reported closed")
	}
	if !(Opportunity{WonAt: &now}).Closed() {
		t.Fatal("won opportunity not closed")
	}
	if !(Opportunity{LostAt: &now}).Closed() {
		t.Fatal("lost opportunity not closed")
	}
}

// TestPipelineStageLookups verifies behavior for the covered scenario.
func TestPipelineStageLookups(t *testing.T) {
	p := Pipeline{
		ID:   "p1",
		Name: "Vendas",
		Stages: []Stage{
			{ID: "s-new", Name: "Novo"},
			{ID: "s-won", Name: "Ganho", IsWinStage: true},
			{ID: "s-lost", Name: "Perdido", IsLossStage: true},
		},
	}

	stage, ok := p.StageByID("s-new")
	if !ok || stage.Name != "Novo" {
		t.Fatalf("StageByID(s-new) = %#v, %t", stage, ok)
	}
	if _, ok := p.StageByID("missing"); ok {
		t.Fatal("StageByID(missing) reported found")
	}

	win, ok := p.WinStage()
	if !ok || win.ID != "s-won" {
		t.Fatalf("WinStage() = %#v, %t", win, ok)
	}
	loss, ok := p.LossStage()
	if !ok || loss.ID != "s-lost" {
		t.Fatalf("LossStage() = %#v, %t", loss, ok)
	}
	if _, ok := (Pipeline{}).WinStage(); ok {
		t.Fatal("empty pipeline reported a win stage")
	}
}
