package services

import (
	"bufio"
	"log"
	"os"
	"strings"
	"sync"
)

// Lexical filter stage of the moderation pipeline: a deterministic blocklist
// check over title and description. A hit rejects the request outright and
// the generative review stage is skipped.

var defaultBlockedWords = []string{
	"fuck", "fucking", "shit", "bitch", "asshole", "bastard",
	"cunt", "dick", "whore", "slut", "piss",
}

var (
	blocklistOnce sync.Once
	blocklist     map[string]struct{}
)

// InitProfanityFilter builds the blocklist from the defaults plus an optional
// newline-delimited file at PROFANITY_BLOCKLIST_PATH.
func InitProfanityFilter() {
	blocklistOnce.Do(loadBlocklist)
}

func loadBlocklist() {
	blocklist = make(map[string]struct{}, len(defaultBlockedWords))
	for _, w := range defaultBlockedWords {
		blocklist[w] = struct{}{}
	}

	path := os.Getenv("PROFANITY_BLOCKLIST_PATH")
	if path == "" {
		return
	}

	f, err := os.Open(path)
	if err != nil {
		log.Printf("Could not open profanity blocklist %s: %v", path, err)
		return
	}
	defer f.Close()

	added := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		word := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if word == "" || strings.HasPrefix(word, "#") {
			continue
		}
		blocklist[word] = struct{}{}
		added++
	}
	if err := scanner.Err(); err != nil {
		log.Printf("Error reading profanity blocklist %s: %v", path, err)
	}
	log.Printf("Profanity blocklist loaded: %d custom words", added)
}

// ContainsProfanity reports whether any token of the text is blocklisted.
// Tokens are lowercased and split on anything that is not a letter or digit,
// so punctuation does not hide a match.
func ContainsProfanity(text string) bool {
	blocklistOnce.Do(loadBlocklist)

	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isWordRune(r)
	})
	for _, token := range tokens {
		if _, blocked := blocklist[token]; blocked {
			return true
		}
	}
	return false
}

func isWordRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '\''
}
