package cvstore

import (
	"github.com/Iron-Ham/cvcollab/internal/merge"
)

// CVKey is the key under which the whole CV is stored.
const CVKey = "cvData"

// GeneralInfoSection is the shared-snapshot section holding GeneralInfo fields.
const GeneralInfoSection = "generalInfo"

// GeneralInfo is the contact block at the top of a CV.
type GeneralInfo struct {
	Name         string `json:"name" yaml:"name"`
	Email        string `json:"email" yaml:"email"`
	Phone        string `json:"phone" yaml:"phone"`
	Location     string `json:"location" yaml:"location"`
	Website      string `json:"website" yaml:"website"`
	LinkedIn     string `json:"linkedin" yaml:"linkedin"`
	GitHub       string `json:"github" yaml:"github"`
	Summary      string `json:"summary" yaml:"summary"`
	ProfilePhoto string `json:"profilePhoto" yaml:"profilePhoto"`
}

// Item is one entry of a list section (a job, a degree, a skill). The form
// components own its shape.
type Item map[string]any

// CVData is the complete CV as edited by the form.
type CVData struct {
	GeneralInfo    GeneralInfo `json:"generalInfo" yaml:"generalInfo"`
	Skills         []Item      `json:"skills" yaml:"skills"`
	Languages      []Item      `json:"languages" yaml:"languages"`
	Certifications []Item      `json:"certifications" yaml:"certifications"`
	Experience     []Item      `json:"experience" yaml:"experience"`
	Education      []Item      `json:"education" yaml:"education"`
	Projects       []Item      `json:"projects" yaml:"projects"`
	Awards         []Item      `json:"awards" yaml:"awards"`
}

// normalize replaces nil lists with empty ones so stored JSON always has arrays.
func (cv *CVData) normalize() {
	for _, list := range []*[]Item{
		&cv.Skills, &cv.Languages, &cv.Certifications, &cv.Experience,
		&cv.Education, &cv.Projects, &cv.Awards,
	} {
		if *list == nil {
			*list = []Item{}
		}
	}
}

// ApplySnapshot returns cv with the string fields of the snapshot's
// generalInfo section written over its GeneralInfo. Unknown fields and
// non-string values are ignored.
func ApplySnapshot(cv CVData, snap merge.Snapshot) CVData {
	targets := map[string]*string{
		"name":         &cv.GeneralInfo.Name,
		"email":        &cv.GeneralInfo.Email,
		"phone":        &cv.GeneralInfo.Phone,
		"location":     &cv.GeneralInfo.Location,
		"website":      &cv.GeneralInfo.Website,
		"linkedin":     &cv.GeneralInfo.LinkedIn,
		"github":       &cv.GeneralInfo.GitHub,
		"summary":      &cv.GeneralInfo.Summary,
		"profilePhoto": &cv.GeneralInfo.ProfilePhoto,
	}
	for field, v := range snap[GeneralInfoSection] {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if dst, ok := targets[field]; ok {
			*dst = s
		}
	}
	return cv
}
