package controller

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

const (
	headerPrefix = "Ol-"
)

func (c *controller) mustHeader(r *http.Request, key string) (string, error) {
	value := r.Header.Get(headerPrefix + key)
	if value == "" {
		return "", fmt.Errorf("%s was not provided", key)
	}

	return value, nil
}

func (c *controller) optionalHeader(r *http.Request, key string) string {
	return r.Header.Get(headerPrefix + key)
}

func (c *controller) generateTimeBasedId() string {
	return strconv.FormatInt(time.Now().UnixNano(), 36)
}
