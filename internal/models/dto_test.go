package models

import "testing"

func TestListQueryClamp(t *testing.T) {
	tests := []struct {
		name         string
		page         int
		pageSize     int
		maxPageSize  int
		wantPage     int
		wantPageSize int
	}{
		{"zero page", 0, 50, 200, 1, 50},
		{"negative page", -3, 50, 200, 1, 50},
		{"zero page size", 1, 0, 200, 1, 50},
		{"negative page size", 1, -10, 200, 1, 50},
		{"over the cap", 2, 1000, 200, 2, 200},
		{"no cap configured", 2, 1000, 0, 2, 1000},
		{"already sane", 3, 25, 200, 3, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := &RowListQuery{Page: tt.page, PageSize: tt.pageSize}
			rows.Clamp(tt.maxPageSize)
			if rows.Page != tt.wantPage || rows.PageSize != tt.wantPageSize {
				t.Errorf("RowListQuery.Clamp() = page %d size %d, want page %d size %d",
					rows.Page, rows.PageSize, tt.wantPage, tt.wantPageSize)
			}

			audit := &AuditListQuery{Page: tt.page, PageSize: tt.pageSize}
			audit.Clamp(tt.maxPageSize)
			if audit.Page != tt.wantPage || audit.PageSize != tt.wantPageSize {
				t.Errorf("AuditListQuery.Clamp() = page %d size %d, want page %d size %d",
					audit.Page, audit.PageSize, tt.wantPage, tt.wantPageSize)
			}
		})
	}
}
