package auth

import (
	"net/url"
	"strings"
)

// Check inspects credentials locally. No network calls are made.
// The returned slice lists every setting in a stable order.
func Check(creds Credentials) []Status {
	statuses := []Status{
		checkValue("oidc-client-id", creds.ClientID),
		checkValue("oidc-client-secret", creds.ClientSecret),
		checkValue("oidc-username", creds.Username),
		checkValue("oidc-password", creds.Password),
		checkEndpoint("oidc-token-endpoint", creds.TokenEndpoint),
	}
	return statuses
}

// Problems returns only the statuses that are not configured.
func Problems(statuses []Status) []Status {
	var problems []Status
	for _, s := range statuses {
		if s.State != StateConfigured {
			problems = append(problems, s)
		}
	}
	return problems
}

func checkValue(setting, value string) Status {
	if strings.TrimSpace(value) == "" {
		return Status{Setting: setting, State: StateMissing, Summary: setting + " is required"}
	}
	return Status{Setting: setting, State: StateConfigured, Summary: "set"}
}

func checkEndpoint(setting, value string) Status {
	if strings.TrimSpace(value) == "" {
		return Status{Setting: setting, State: StateMissing, Summary: setting + " is required"}
	}
	u, err := url.Parse(value)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return Status{Setting: setting, State: StateInvalid, Summary: setting + " must be an http(s) URL"}
	}
	return Status{Setting: setting, State: StateConfigured, Summary: u.Host}
}
