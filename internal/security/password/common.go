package password

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Lista corta embebida de passwords quemadas. No pretende ser exhaustiva;
// para listas grandes usar LoadCommonList con un archivo tipo rockyou-top-N.
var commonPasswords = map[string]struct{}{
	"password": {}, "password1": {}, "password123": {}, "passw0rd": {},
	"123456": {}, "1234567": {}, "12345678": {}, "123456789": {}, "1234567890": {},
	"qwerty": {}, "qwerty123": {}, "abc123": {}, "111111": {}, "000000": {},
	"iloveyou": {}, "letmein": {}, "welcome": {}, "welcome1": {}, "admin": {},
	"admin123": {}, "root": {}, "dragon": {}, "monkey": {}, "sunshine": {},
	"princess": {}, "football": {}, "baseball": {}, "superman": {}, "trustno1": {},
}

var (
	commonMu    sync.RWMutex
	commonExtra map[string]struct{}
)

func isCommon(pwd string) bool {
	p := strings.ToLower(strings.TrimSpace(pwd))
	if _, ok := commonPasswords[p]; ok {
		return true
	}
	commonMu.RLock()
	_, ok := commonExtra[p]
	commonMu.RUnlock()
	return ok
}

// LoadCommonList suma entradas desde un archivo de texto, una por línea.
// Líneas vacías y comentarios (#) se ignoran. Path vacío es un no-op.
func LoadCommonList(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return err
	}
	defer f.Close()

	extra := map[string]struct{}{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(strings.ToLower(sc.Text()))
		if s != "" && !strings.HasPrefix(s, "#") {
			extra[s] = struct{}{}
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}

	commonMu.Lock()
	if commonExtra == nil {
		commonExtra = map[string]struct{}{}
	}
	for k := range extra {
		commonExtra[k] = struct{}{}
	}
	commonMu.Unlock()
	return nil
}
