package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	code := `
		HANDLE h = OpenProcess(PROCESS_ALL_ACCESS, FALSE, pid);
		LPVOID mem = VirtualAllocEx(h, NULL, len, MEM_COMMIT, PAGE_EXECUTE_READWRITE);
		WriteProcessMemory(h, mem, payload, len, NULL);
		CreateRemoteThread(h, NULL, 0, mem, NULL, 0, NULL);
		connect(sock, addr, sizeof(addr));
		CryptEncrypt(hKey, 0, TRUE, 0, data, &dataLen, bufLen);
	`

	f := Extract(code)

	assert.ElementsMatch(t, []string{
		"CreateRemoteThread", "WriteProcessMemory", "VirtualAllocEx",
		"OpenProcess", "CryptEncrypt",
	}, f.APICalls)
	assert.Contains(t, f.NetworkOps, "connect")
	assert.Contains(t, f.CryptoOps, "encrypt")
	assert.False(t, f.Empty())
}

func TestExtractCaseInsensitive(t *testing.T) {
	f := Extract("WRITEPROCESSMEMORY writeprocessmemory")
	assert.Equal(t, []string{"WriteProcessMemory"}, f.APICalls)
}

func TestExtractClean(t *testing.T) {
	f := Extract("int add(int a, int b) { return a + b; }")
	assert.True(t, f.Empty())
	assert.Empty(t, f.Tokens())
}

func TestTokens(t *testing.T) {
	f := Features{
		APICalls:   []string{"CreateRemoteThread"},
		NetworkOps: []string{"http"},
		CryptoOps:  []string{"aes"},
	}

	assert.Equal(t, []string{"createremotethread", "http", "aes"}, f.Tokens())
}

func TestYearFromPath(t *testing.T) {
	tests := []struct {
		path     string
		expected int
	}{
		{"samples/2019/emotet/loader.c", 2019},
		{"vxug/1998/cih.asm", 1998},
		{"samples/emotet/loader.c", 0},
		{"release-20.1/x.c", 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, YearFromPath(tt.path), tt.path)
	}
}

func TestFamilyFromPath(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"samples/2019/Emotet/loader.c", "emotet"},
		{"corpus/LockBit3.0/encryptor.cpp", "lockbit"},
		{"src/wannacry_worm.c", "wannacry"},
		{"samples/unknown/thing.c", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FamilyFromPath(tt.path), tt.path)
	}
}
