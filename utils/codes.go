package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateAccessCode produit un code court lisible à transmettre à un
// futur adhérent (8 caractères hexadécimaux, majuscules).
func GenerateAccessCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
