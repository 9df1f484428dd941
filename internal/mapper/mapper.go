package mapper

import (
	"math"
	"sort"

	"github.com/straye-as/labelling-app/internal/analysis"
	"github.com/straye-as/labelling-app/internal/auth"
	"github.com/straye-as/labelling-app/internal/dataset"
	"github.com/straye-as/labelling-app/internal/domain"
)

const isoLayout = "2006-01-02T15:04:05Z"

// ToUserDTO converts the request user to UserDTO
func ToUserDTO(user *auth.UserContext) domain.UserDTO {
	return domain.UserDTO{
		Username:      user.Username,
		DisplayName:   user.DisplayName,
		Email:         user.Email,
		Initials:      user.Initials(),
		DataScientist: user.CanViewAnalysis(),
	}
}

// ToSaveEventDTO converts SaveEvent to SaveEventDTO
func ToSaveEventDTO(event domain.SaveEvent) domain.SaveEventDTO {
	return domain.SaveEventDTO{
		ID:            event.ID,
		RunID:         event.RunID,
		UserName:      event.UserName,
		BlobName:      event.BlobName,
		RowCount:      event.RowCount,
		LabelledCount: event.LabelledCount,
		PrunedCount:   event.PrunedCount,
		SavedAt:       event.SavedAt.UTC().Format(isoLayout),
	}
}

// ToInputFileDTOs converts input blob names to InputFileDTOs
func ToInputFileDTOs(names []string) []domain.InputFileDTO {
	dtos := make([]domain.InputFileDTO, len(names))
	for i, name := range names {
		dtos[i] = domain.InputFileDTO{Name: name, RunID: dataset.RunIDFor(name)}
	}
	return dtos
}

// ToResultFileDTO converts a decoded results file name
func ToResultFileDTO(file domain.ResultFile) domain.ResultFileDTO {
	dto := domain.ResultFileDTO{
		Name:     file.Name,
		RunID:    file.RunID,
		UserName: file.UserName,
		Legacy:   file.Legacy,
	}
	if at, ok := file.SavedAt(); ok {
		dto.SavedAt = at.Format(isoLayout)
	}
	return dto
}

// ToRunDTOs groups results files by run id. Runs and users are sorted.
func ToRunDTOs(files []domain.ResultFile) []domain.RunDTO {
	byRun := make(map[string]*domain.RunDTO)
	var order []string
	for _, f := range files {
		run, ok := byRun[f.RunID]
		if !ok {
			run = &domain.RunDTO{RunID: f.RunID}
			byRun[f.RunID] = run
			order = append(order, f.RunID)
		}
		run.Files = append(run.Files, ToResultFileDTO(f))
		if !containsString(run.Users, f.UserName) {
			run.Users = append(run.Users, f.UserName)
		}
	}

	sort.Strings(order)
	dtos := make([]domain.RunDTO, len(order))
	for i, id := range order {
		sort.Strings(byRun[id].Users)
		dtos[i] = *byRun[id]
	}
	return dtos
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ToRefreshResponse summarises freshly read analysis results
func ToRefreshResponse(res *analysis.Results) domain.RefreshResponse {
	return domain.RefreshResponse{
		Runs:        len(res.Runs),
		Files:       res.Files,
		Warnings:    res.Warnings,
		RefreshedAt: res.LoadedAt.UTC().Format(isoLayout),
	}
}

// ToCorrelationDTO converts a correlation matrix, NaN cells become null
func ToCorrelationDTO(m analysis.CorrelationMatrix) domain.CorrelationDTO {
	dto := domain.CorrelationDTO{
		Columns: m.Columns,
		R:       nullable(m.R),
		P:       nullable(m.P),
	}
	if dto.Columns == nil {
		dto.Columns = []string{}
	}
	return dto
}

func nullable(grid [][]float64) [][]*float64 {
	out := make([][]*float64, len(grid))
	for i, row := range grid {
		out[i] = make([]*float64, len(row))
		for j, v := range row {
			if math.IsNaN(v) {
				continue
			}
			v := v
			out[i][j] = &v
		}
	}
	return out
}
