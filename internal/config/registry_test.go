package config

import (
	"errors"
	"testing"

	"github.com/earshot-ai/earshot/pkg/provider/llm"
	llmmock "github.com/earshot-ai/earshot/pkg/provider/llm/mock"
	"github.com/earshot-ai/earshot/pkg/provider/stt"
	sttmock "github.com/earshot-ai/earshot/pkg/provider/stt/mock"
)

func TestRegistryCreate(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	var gotEntry ProviderEntry
	r.RegisterSTT("mock", func(entry ProviderEntry) (stt.Transcriber, error) {
		gotEntry = entry
		return &sttmock.Transcriber{}, nil
	})
	r.RegisterLLM("mock", func(ProviderEntry) (llm.Provider, error) {
		return &llmmock.Provider{}, nil
	})

	transcriber, err := r.CreateSTT(ProviderEntry{Name: "mock", Model: "whisper-1"})
	if err != nil {
		t.Fatalf("CreateSTT: %v", err)
	}
	if transcriber == nil {
		t.Fatal("CreateSTT returned nil")
	}
	if gotEntry.Model != "whisper-1" {
		t.Errorf("factory entry = %+v", gotEntry)
	}

	if _, err := r.CreateLLM(ProviderEntry{Name: "mock"}); err != nil {
		t.Errorf("CreateLLM: %v", err)
	}
}

func TestRegistryUnknownProvider(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	if _, err := r.CreateSTT(ProviderEntry{Name: "nope"}); !errors.Is(err, ErrProviderNotRegistered) {
		t.Errorf("CreateSTT err = %v", err)
	}
	if _, err := r.CreateLLM(ProviderEntry{Name: "nope"}); !errors.Is(err, ErrProviderNotRegistered) {
		t.Errorf("CreateLLM err = %v", err)
	}
	if _, err := r.CreateEmbeddings(ProviderEntry{Name: "nope"}); !errors.Is(err, ErrProviderNotRegistered) {
		t.Errorf("CreateEmbeddings err = %v", err)
	}
}
