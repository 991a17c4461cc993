package tender

import (
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/appaltosmart/webclient/core"
)

func newValidator(t *testing.T) (*validator.Validate, ut.Translator) {
	t.Helper()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	return validate, translator
}

func TestTender_Open(t *testing.T) {
	now := time.Now().UTC()
	tts := []struct {
		name     string
		status   string
		deadline time.Time
		want     bool
	}{
		{name: "open before deadline", status: StatusOpen, deadline: now.Add(time.Hour), want: true},
		{name: "published before deadline", status: StatusPublished, deadline: now.Add(time.Hour), want: true},
		{name: "open past deadline", status: StatusOpen, deadline: now.Add(-time.Hour), want: false},
		{name: "open without deadline", status: StatusOpen, want: true},
		{name: "draft", status: StatusDraft, deadline: now.Add(time.Hour), want: false},
		{name: "awarded", status: StatusAwarded, deadline: now.Add(time.Hour), want: false},
	}
	for _, tt := range tts {
		t.Run(tt.name, func(t *testing.T) {
			tdr := Tender{Status: tt.status, Deadline: tt.deadline}
			if got := tdr.Open(now); got != tt.want {
				t.Errorf("Open() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTender_TimeLeft(t *testing.T) {
	now := time.Now().UTC()

	tdr := Tender{Deadline: now.Add(2 * time.Hour)}
	if got := tdr.TimeLeft(now); got != 2*time.Hour {
		t.Errorf("TimeLeft() = %v, want 2h", got)
	}

	tdr.Deadline = now.Add(-time.Minute)
	if got := tdr.TimeLeft(now); got != 0 {
		t.Errorf("TimeLeft() past deadline = %v, want 0", got)
	}

	tdr.Deadline = time.Time{}
	if got := tdr.TimeLeft(now); got != 0 {
		t.Errorf("TimeLeft() without deadline = %v, want 0", got)
	}
}

func TestSortItems(t *testing.T) {
	items := []BOQItem{
		{ID: 3, DisplayOrder: 2},
		{ID: 1, DisplayOrder: 1},
		{ID: 2, DisplayOrder: 2},
	}
	SortItems(items)

	wantIDs := []int{1, 2, 3} // display order first, ID breaks the tie
	for i, want := range wantIDs {
		if items[i].ID != want {
			t.Errorf("items[%d].ID = %d, want %d", i, items[i].ID, want)
		}
	}
}

func TestNextDisplayOrder(t *testing.T) {
	if got := NextDisplayOrder(nil); got != 1 {
		t.Errorf("NextDisplayOrder(nil) = %d, want 1", got)
	}
	items := []BOQItem{{DisplayOrder: 4}, {DisplayOrder: 2}}
	if got := NextDisplayOrder(items); got != 5 {
		t.Errorf("NextDisplayOrder() = %d, want 5", got)
	}
}

func TestNewTender_Validate(t *testing.T) {
	validate, translator := newValidator(t)

	valid := func() NewTender {
		return NewTender{
			Title:    "  Road works  ",
			Location: "Milano",
			Budget:   BudgetBuckets[0],
			Deadline: time.Now().Add(24 * time.Hour),
			Items: []NewBOQItem{
				{Description: "Excavation", ItemType: ItemUnitPriced, Quantity: 10},
			},
		}
	}

	t.Run("ok and cleans strings", func(t *testing.T) {
		nt := valid()
		if err := nt.Validate(validate, translator); err != nil {
			t.Fatalf("Validate() failed: %v", err)
		}
		if nt.Title != "Road works" {
			t.Errorf("Title = %q, want trimmed", nt.Title)
		}
	})

	t.Run("past deadline rejected", func(t *testing.T) {
		nt := valid()
		nt.Deadline = time.Now().Add(-time.Hour)
		if err := nt.Validate(validate, translator); err == nil {
			t.Fatal("Validate() expected error for past deadline")
		}
	})

	t.Run("missing title rejected", func(t *testing.T) {
		nt := valid()
		nt.Title = ""
		if err := nt.Validate(validate, translator); err == nil {
			t.Fatal("Validate() expected error for missing title")
		}
	})

	t.Run("bad item type rejected", func(t *testing.T) {
		nt := valid()
		nt.Items[0].ItemType = "lol"
		if err := nt.Validate(validate, translator); err == nil {
			t.Fatal("Validate() expected error for bad item type")
		}
	})
}

func TestTender_PublishReady(t *testing.T) {
	tdr := Tender{}
	if err := tdr.PublishReady(); err == nil {
		t.Fatal("PublishReady() expected error without BOQ items")
	}

	tdr.BOQItems = []BOQItem{{ID: 1, Description: "x"}}
	if err := tdr.PublishReady(); err != nil {
		t.Fatalf("PublishReady() failed: %v", err)
	}
}
