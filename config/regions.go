package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/pelletier/go-toml/v2"
	"github.com/titanous/json5"

	"shower-scraper/models"
)

// RegionsFile is the on-disk layout of the region definitions.
type RegionsFile struct {
	Regions []models.Region `json:"regions" toml:"regions"`
}

// ReadRegions loads region definitions from path (json5, json or toml by
// extension) and merges <name>.local.<ext> over it when present. Local
// entries override the base region with the same id, or are appended.
func ReadRegions(path string) ([]models.Region, error) {
	base, err := readRegionsFile(path)
	if err != nil {
		return nil, err
	}

	localPath := localVariant(path)
	local, err := readRegionsFile(localPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		base, err = mergeRegions(base, local)
		if err != nil {
			return nil, fmt.Errorf("merge %s: %w", localPath, err)
		}
	}

	if err := validateRegions(base); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return base, nil
}

// SelectRegion returns the region whose id or name matches name case-insensitively.
func SelectRegion(regions []models.Region, name string) (models.Region, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	for _, r := range regions {
		if strings.ToLower(r.ID) == want || strings.ToLower(r.Name) == want {
			return r, nil
		}
	}
	return models.Region{}, fmt.Errorf("region %q is not configured", name)
}

func readRegionsFile(path string) ([]models.Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file RegionsFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &file)
	default:
		err = json5.Unmarshal(data, &file)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return file.Regions, nil
}

func localVariant(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}

func mergeRegions(base, local []models.Region) ([]models.Region, error) {
	out := append([]models.Region(nil), base...)
	index := make(map[string]int, len(out))
	for i, r := range out {
		index[r.ID] = i
	}
	for _, l := range local {
		i, ok := index[l.ID]
		if !ok {
			index[l.ID] = len(out)
			out = append(out, l)
			continue
		}
		if err := mergo.Merge(&out[i], l, mergo.WithOverride); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func validateRegions(regions []models.Region) error {
	if len(regions) == 0 {
		return errors.New("no regions defined")
	}
	seen := make(map[string]struct{}, len(regions))
	for _, r := range regions {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			return fmt.Errorf("region %q has no id", r.Name)
		}
		if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
			return fmt.Errorf("region id %q is not a valid file name", id)
		}
		if _, dup := seen[strings.ToLower(id)]; dup {
			return fmt.Errorf("duplicate region id %q", id)
		}
		seen[strings.ToLower(id)] = struct{}{}
		if len(r.Queries) == 0 && len(r.Terms) == 0 {
			return fmt.Errorf("region %q has no queries or terms", id)
		}
	}
	return nil
}
