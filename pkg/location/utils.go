package location

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"googlemaps.github.io/maps"
)

const earthRadiusMeters = 6371008.8

// Distance returns the great-circle distance in meters between two samples.
func Distance(a, b Sample) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// scanWiFiAccessPoints lists nearby access points through nmcli.
func scanWiFiAccessPoints(ctx context.Context) ([]maps.WiFiAccessPoint, error) {
	if _, err := exec.LookPath("nmcli"); err != nil {
		return nil, fmt.Errorf("nmcli not found: %w", err)
	}

	output, err := exec.CommandContext(ctx, "nmcli", "-t", "-f", "BSSID,SIGNAL", "dev", "wifi", "list").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to run nmcli: %w", err)
	}

	return parseNmcliAccessPoints(string(output))
}

// parseNmcliAccessPoints parses terse nmcli output. nmcli escapes the colons
// inside a BSSID, so "AA\:BB\:CC\:DD\:EE\:FF:72" is one access point at signal 72.
func parseNmcliAccessPoints(output string) ([]maps.WiFiAccessPoint, error) {
	var accessPoints []maps.WiFiAccessPoint

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		idx := strings.LastIndex(line, ":")
		if idx <= 0 {
			continue
		}

		mac := strings.ReplaceAll(line[:idx], `\:`, ":")
		if !isValidMAC(mac) {
			continue
		}
		signal, err := strconv.Atoi(strings.TrimSpace(line[idx+1:]))
		if err != nil {
			continue
		}

		accessPoints = append(accessPoints, maps.WiFiAccessPoint{
			MACAddress:     mac,
			SignalStrength: signalPercentToDBm(signal),
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan nmcli output: %w", err)
	}
	return accessPoints, nil
}

// signalPercentToDBm maps nmcli's 0-100 signal quality onto the -100..-50 dBm
// range the Geolocation API expects, the same linear scale NetworkManager uses.
func signalPercentToDBm(percent int) float64 {
	percent = min(max(percent, 0), 100)
	return float64(percent)/2 - 100
}

// isValidMAC checks for the colon separated form, e.g. "00:14:22:01:23:45".
func isValidMAC(mac string) bool {
	parts := strings.Split(mac, ":")
	if len(parts) != 6 {
		return false
	}
	for _, part := range parts {
		if len(part) != 2 {
			return false
		}
		if _, err := strconv.ParseUint(part, 16, 8); err != nil {
			return false
		}
	}
	return true
}
