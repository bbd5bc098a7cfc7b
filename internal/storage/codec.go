package storage

import (
	"encoding/json"
	"errors"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeTrainingRun(run TrainingRun) ([]byte, error) {
	return json.Marshal(run)
}

func DecodeTrainingRun(data []byte) (TrainingRun, error) {
	var run TrainingRun
	if err := json.Unmarshal(data, &run); err != nil {
		return TrainingRun{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return TrainingRun{}, err
	}
	return run, nil
}

func EncodeEpochHistory(history EpochHistory) ([]byte, error) {
	return json.Marshal(history)
}

func DecodeEpochHistory(data []byte) (EpochHistory, error) {
	var history EpochHistory
	if err := json.Unmarshal(data, &history); err != nil {
		return EpochHistory{}, err
	}
	if err := checkVersion(history.VersionedRecord); err != nil {
		return EpochHistory{}, err
	}
	return history, nil
}

func checkVersion(v VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
