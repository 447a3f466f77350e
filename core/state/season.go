package state

import (
	nativecommon "beanchain/native/common"
	"beanchain/native/gauge"
	"beanchain/native/season"
)

// SeasonCurrent returns the active season number. A fresh ledger is in
// season 1.
func (m *Manager) SeasonCurrent() (uint64, error) {
	status, err := m.SeasonGetStatus()
	if err != nil {
		return 0, err
	}
	if status == nil || status.Current == 0 {
		return 1, nil
	}
	return status.Current, nil
}

func (m *Manager) SeasonGetStatus() (*season.Status, error) {
	status := new(season.Status)
	ok, err := m.KVGet(seasonStatusKey, status)
	if err != nil || !ok {
		return nil, err
	}
	return status, nil
}

func (m *Manager) SeasonPutStatus(status *season.Status) error {
	return m.KVPut(seasonStatusKey, status)
}

func (m *Manager) SeasonGetWeather() (*season.Weather, error) {
	weather := new(season.Weather)
	ok, err := m.KVGet(seasonWeatherKey, weather)
	if err != nil || !ok {
		return nil, err
	}
	return weather, nil
}

func (m *Manager) SeasonPutWeather(weather *season.Weather) error {
	return m.KVPut(seasonWeatherKey, weather)
}

// ConvertGetCapacity returns this season's up-convert usage. Missing entries
// read as unused.
func (m *Manager) ConvertGetCapacity() (nativecommon.CapacityUsage, error) {
	var usage nativecommon.CapacityUsage
	ok, err := m.KVGet(seasonCapacityKey, &usage)
	if err != nil || !ok {
		return nativecommon.CapacityUsage{}, err
	}
	return usage, nil
}

func (m *Manager) ConvertPutCapacity(usage nativecommon.CapacityUsage) error {
	return m.KVPut(seasonCapacityKey, &usage)
}

func (m *Manager) GaugeGetParams() (*gauge.Params, error) {
	params := new(gauge.Params)
	ok, err := m.KVGet(gaugeParamsKey, params)
	if err != nil || !ok {
		return nil, err
	}
	return params, nil
}

func (m *Manager) GaugePutParams(params *gauge.Params) error {
	return m.KVPut(gaugeParamsKey, params)
}
