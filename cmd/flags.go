package main

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/geolocate/internal/identifier"
	"github.com/sells-group/geolocate/internal/locate"
)

// queryFlags are the observation flags shared by position and region.
type queryFlags struct {
	cells  []string
	wifis  []string
	ip     string
	apiKey string
	noIPF  bool
	noLACF bool
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.cells, "cell", nil, "cell as radio:mcc:mnc:lac[:cid][:signal] (repeatable)")
	cmd.Flags().StringArrayVar(&f.wifis, "wifi", nil, "wifi as mac[:signal] (repeatable)")
	cmd.Flags().StringVar(&f.ip, "ip", "", "client IP address")
	cmd.Flags().StringVar(&f.apiKey, "api-key", "", "API key of the caller")
	cmd.Flags().BoolVar(&f.noIPF, "no-ipf", false, "disable IP fallback")
	cmd.Flags().BoolVar(&f.noLACF, "no-lacf", false, "disable cell area fallback")
}

func (f *queryFlags) params(kind locate.Kind) (locate.QueryParams, error) {
	p := locate.QueryParams{
		IP:             f.ip,
		APIKey:         f.apiKey,
		Kind:           kind,
		NoIPFallback:   f.noIPF,
		NoAreaFallback: f.noLACF,
	}
	for _, s := range f.cells {
		c, err := parseCellFlag(s)
		if err != nil {
			return p, err
		}
		p.Cells = append(p.Cells, c)
	}
	for _, s := range f.wifis {
		w, err := parseWifiFlag(s)
		if err != nil {
			return p, err
		}
		p.Wifis = append(p.Wifis, w)
	}
	return p, nil
}

// parseCellFlag parses radio:mcc:mnc:lac[:cid][:signal]. Range checks are
// left to query validation.
func parseCellFlag(s string) (locate.CellObservation, error) {
	var obs locate.CellObservation
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 4 || len(parts) > 6 {
		return obs, eris.Errorf("cell %q: want radio:mcc:mnc:lac[:cid][:signal]", s)
	}
	radio, err := identifier.ParseRadio(parts[0])
	if err != nil {
		return obs, eris.Wrapf(err, "cell %q", s)
	}
	obs.Radio = &radio

	ints := make([]*int, len(parts)-1)
	for i, part := range parts[1:] {
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return obs, eris.Errorf("cell %q: field %d is not a number", s, i+2)
		}
		ints[i] = &n
	}
	obs.MCC, obs.MNC, obs.LAC = ints[0], ints[1], ints[2]
	if len(ints) > 3 {
		obs.CID = ints[3]
	}
	if len(ints) > 4 {
		obs.Signal = ints[4]
	}
	return obs, nil
}

// parseWifiFlag parses mac[:signal]. The MAC may itself contain colons.
func parseWifiFlag(s string) (locate.WifiObservation, error) {
	s = strings.TrimSpace(s)
	if _, err := identifier.NormalizeMAC(s); err == nil {
		return locate.WifiObservation{MAC: s}, nil
	}
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return locate.WifiObservation{}, eris.Errorf("wifi %q: invalid mac", s)
	}
	mac := s[:i]
	if _, err := identifier.NormalizeMAC(mac); err != nil {
		return locate.WifiObservation{}, eris.Errorf("wifi %q: invalid mac", s)
	}
	signal, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return locate.WifiObservation{}, eris.Errorf("wifi %q: signal is not a number", s)
	}
	return locate.WifiObservation{MAC: mac, Signal: &signal}, nil
}

func parseKind(s string) (locate.Kind, error) {
	switch strings.ToLower(s) {
	case "position":
		return locate.PositionKind, nil
	case "region":
		return locate.RegionKind, nil
	}
	return 0, eris.Errorf("unknown kind %q (want position or region)", s)
}
