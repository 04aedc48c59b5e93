package service

import "golang.org/x/crypto/bcrypt"

// HashPassword genera un hash bcrypt con salt aleatorio por llamada.
func HashPassword(password string) (string, error) {
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashBytes), nil
}

// VerifyPassword compara un password en claro con el hash almacenado.
// Un hash malformado o vacío nunca verifica; jamás produce panic.
func VerifyPassword(password, hashedPassword string) bool {
	if hashedPassword == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}
