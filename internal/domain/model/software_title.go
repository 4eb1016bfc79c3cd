/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package model

// SoftwareTitle is an upstream grouping of installations of one product, independent of version.
type SoftwareTitle struct {
	ID            int64             `json:"id" cbor:"id"`
	Name          string            `json:"name" cbor:"name"`
	Source        string            `json:"source" cbor:"source"`
	HostsCount    int64             `json:"hosts_count" cbor:"hosts_count"`
	VersionsCount int64             `json:"versions_count" cbor:"versions_count"`
	Versions      []SoftwareVersion `json:"versions" cbor:"versions"`
}

// FirstVersionID returns the id of the first listed version, or false when the title has none.
func (t SoftwareTitle) FirstVersionID() (int64, bool) {
	if len(t.Versions) == 0 {
		return 0, false
	}
	return t.Versions[0].ID, true
}

// SoftwareVersion is one version of a software title as reported by the upstream API.
type SoftwareVersion struct {
	ID              int64    `json:"id" cbor:"id"`
	Name            string   `json:"name,omitempty" cbor:"name,omitempty"`
	Version         string   `json:"version" cbor:"version"`
	Source          string   `json:"source,omitempty" cbor:"source,omitempty"`
	Vendor          string   `json:"vendor,omitempty" cbor:"vendor,omitempty"`
	Vulnerabilities []string `json:"vulnerabilities" cbor:"vulnerabilities"`
}

// SoftwareTitlesPage is one page of the upstream software title listing.
type SoftwareTitlesPage struct {
	Titles         []SoftwareTitle
	Count          int64
	HasNextResults bool
}
