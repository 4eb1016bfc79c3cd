/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package upstream

import "github.com/kentakayama/inventory-gateway/internal/domain/model"

type softwareTitlesResponse struct {
	Count          int64           `json:"count"`
	SoftwareTitles []softwareTitle `json:"software_titles"`
	Meta           struct {
		HasNextResults     bool `json:"has_next_results"`
		HasPreviousResults bool `json:"has_previous_results"`
	} `json:"meta"`
}

type softwareTitle struct {
	ID            int64                `json:"id"`
	Name          string               `json:"name"`
	Source        string               `json:"source"`
	HostsCount    int64                `json:"hosts_count"`
	VersionsCount int64                `json:"versions_count"`
	Versions      []softwareTitleEntry `json:"versions"`
}

// softwareTitleEntry is a version as embedded in the title listing; vulnerabilities are CVE ids.
type softwareTitleEntry struct {
	ID              int64    `json:"id"`
	Version         string   `json:"version"`
	Vulnerabilities []string `json:"vulnerabilities"`
}

type softwareVersionResponse struct {
	Software softwareVersion `json:"software"`
}

// softwareVersion is the version detail; vulnerabilities are objects.
type softwareVersion struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Version         string `json:"version"`
	Source          string `json:"source"`
	Vendor          string `json:"vendor"`
	Vulnerabilities []struct {
		CVE string `json:"cve"`
	} `json:"vulnerabilities"`
}

func (t softwareTitle) toModel() model.SoftwareTitle {
	m := model.SoftwareTitle{
		ID:            t.ID,
		Name:          t.Name,
		Source:        t.Source,
		HostsCount:    t.HostsCount,
		VersionsCount: t.VersionsCount,
		Versions:      make([]model.SoftwareVersion, 0, len(t.Versions)),
	}
	for _, v := range t.Versions {
		m.Versions = append(m.Versions, model.SoftwareVersion{
			ID:              v.ID,
			Version:         v.Version,
			Vulnerabilities: v.Vulnerabilities,
		})
	}
	return m
}

func (v softwareVersion) toModel() model.SoftwareVersion {
	m := model.SoftwareVersion{
		ID:      v.ID,
		Name:    v.Name,
		Version: v.Version,
		Source:  v.Source,
		Vendor:  v.Vendor,
	}
	for _, vuln := range v.Vulnerabilities {
		m.Vulnerabilities = append(m.Vulnerabilities, vuln.CVE)
	}
	return m
}
