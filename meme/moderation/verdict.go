package moderation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Likelihood is an ordinal band returned by a content-safety classifier.
type Likelihood int

const (
	Unknown Likelihood = iota
	VeryUnlikely
	Unlikely
	Possible
	Likely
	VeryLikely
)

var likelihoodNames = map[Likelihood]string{
	Unknown:      "UNKNOWN",
	VeryUnlikely: "VERY_UNLIKELY",
	Unlikely:     "UNLIKELY",
	Possible:     "POSSIBLE",
	Likely:       "LIKELY",
	VeryLikely:   "VERY_LIKELY",
}

func (l Likelihood) String() string {
	if name, ok := likelihoodNames[l]; ok {
		return name
	}
	return fmt.Sprintf("Likelihood(%d)", int(l))
}

func (l Likelihood) Valid() bool {
	return l >= VeryUnlikely && l <= VeryLikely
}

func ParseLikelihood(s string) (Likelihood, error) {
	for l, name := range likelihoodNames {
		if strings.EqualFold(name, s) {
			return l, nil
		}
	}
	return Unknown, fmt.Errorf("unknown likelihood %q", s)
}

func (l Likelihood) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *Likelihood) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseLikelihood(s)
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// SafeSearch is the per-category verdict of a classifier.
type SafeSearch struct {
	Adult    Likelihood `json:"adult"`
	Violence Likelihood `json:"violence"`
	Racy     Likelihood `json:"racy"`
}

// Threshold is the lowest band that rejects an image.
const Threshold = Likely

// Unsafe reports the first category at or above Threshold.
func (s SafeSearch) Unsafe() (category string, unsafe bool) {
	switch {
	case s.Adult >= Threshold:
		return "adult", true
	case s.Violence >= Threshold:
		return "violence", true
	case s.Racy >= Threshold:
		return "racy", true
	}
	return "", false
}

func (s SafeSearch) Valid() bool {
	return s.Adult.Valid() && s.Violence.Valid() && s.Racy.Valid()
}

type Reason string

const (
	ReasonNone                  Reason = ""
	ReasonProfaneFilename       Reason = "ProfaneFilename"
	ReasonUnsafeContent         Reason = "UnsafeContent"
	ReasonModerationUnavailable Reason = "ModerationUnavailable"
)

// Verdict is the outcome of the pipeline. Err carries the underlying failure
// when Reason is ReasonModerationUnavailable.
type Verdict struct {
	Allowed bool
	Reason  Reason
	Detail  string
	Err     error
}

func allow() Verdict {
	return Verdict{Allowed: true}
}

func reject(reason Reason, detail string) Verdict {
	return Verdict{Reason: reason, Detail: detail}
}

func unavailable(err error) Verdict {
	return Verdict{Reason: ReasonModerationUnavailable, Detail: err.Error(), Err: err}
}
