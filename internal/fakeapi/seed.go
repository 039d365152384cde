package fakeapi

import (
	"fmt"
	"strings"
	"time"

	"github.com/oakwood-commons/crmx/internal/model"
)

var (
	demoNames  = []string{"Ana", "Luis", "María", "Jorge", "Sofía", "Diego", "Valeria", "Pablo", "Lucía", "Andrés"}
	demoCities = []struct{ City, State string }{
		{"Mérida", "Yucatán"}, {"Monterrey", "Nuevo León"}, {"Guadalajara", "Jalisco"}, {"Puebla", "Puebla"},
	}
	demoStatuses = []string{"nuevo", "contactado", "seguimiento", "cerrado"}
)

// SeedDemo fills every collection with deterministic sample data.
func (s *Server) SeedDemo() {
	counts := map[model.Tab]int{
		model.TabLead:        25,
		model.TabProspect:    12,
		model.TabBuyer:       8,
		model.TabClient:      15,
		model.TabCoordinator: 4,
		model.TabSeller:      6,
		model.TabUser:        5,
	}
	for _, office := range DemoOffices() {
		s.Seed(model.TabOffice, model.NewRecord(office.ID, map[string]any{
			"name": office.Name, "phone": office.Phone, "city": office.City, "state": office.State,
		}))
	}
	offices := DemoOffices()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for tab, n := range counts {
		recs := make([]model.Record, 0, n)
		for i := 0; i < n; i++ {
			name := demoNames[i%len(demoNames)]
			loc := demoCities[i%len(demoCities)]
			office := offices[i%len(offices)]
			id := fmt.Sprintf("%s-%03d", tab, i+1)
			fields := map[string]any{
				"name":   fmt.Sprintf("%s %s %d", name, tab.Label(), i+1),
				"email":  fmt.Sprintf("%s.%s%d@example.com", strings.ToLower(name), tab, i+1),
				"phone":  fmt.Sprintf("+52 999 %03d %04d", i, 1000+i),
				"city":   loc.City,
				"state":  loc.State,
				"status": demoStatuses[i%len(demoStatuses)],
				"office": map[string]any{"_id": office.ID, "name": office.Name},
			}
			if i%7 == 3 {
				delete(fields, "phone")
			}
			recs = append(recs, model.NewRecord(id, fields))
			if tab == model.TabLead || tab == model.TabClient {
				for c := 0; c < 3; c++ {
					s.SeedCalls(id, model.CallRecord{
						ID:       fmt.Sprintf("%s-call-%d", id, c),
						RecordID: id,
						At:       base.Add(-time.Duration(c*30+i) * time.Hour),
						Kind:     []string{"call", "activity", "note"}[c],
						Summary:  fmt.Sprintf("follow-up %d", c+1),
						Duration: 60 * (c + 1),
						Agent:    "demo",
					})
				}
			}
		}
		s.Seed(tab, recs...)
	}
	s.AddAccount(Account{
		Email:    "demo@example.com",
		Password: "demo1234",
		User:     model.User{ID: "user-demo", Email: "demo@example.com", Name: "Demo Agent", Role: "admin"},
	})
}

// DemoOffices are the offices SeedDemo creates.
func DemoOffices() []model.Office {
	return []model.Office{
		{ID: "office-1", Name: "Centro", Phone: "+52 999 100 0001", City: "Mérida", State: "Yucatán"},
		{ID: "office-2", Name: "Norte", Phone: "+52 81 100 0002", City: "Monterrey", State: "Nuevo León"},
	}
}
