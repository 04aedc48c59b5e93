package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"bedding-api/internal/domain"
)

// rolePermissions es la tabla cerrada rol → recurso → acciones.
// Los scopes viajan dentro del token; la tabla sólo se consulta al emitirlo.
var rolePermissions = map[domain.Role]map[string][]string{
	domain.RoleAdmin: {
		"me":      {"read", "create", "update", "delete"},
		"user":    {"read", "create", "update", "delete"},
		"shop":    {"read", "create", "update", "delete"},
		"cart":    {"read", "create", "update", "delete"},
		"order":   {"read", "create", "update", "delete"},
		"payment": {"read", "create", "update", "delete"},
	},
	domain.RoleManager: {
		"me":      {"read", "create", "update"},
		"user":    {"read", "create", "update"},
		"shop":    {"read", "create", "update"},
		"cart":    {"read"},
		"order":   {"read", "create", "update"},
		"payment": {"read"},
	},
	domain.RoleBuyer: {
		"me":   {"read", "create", "update"},
		"shop": {"read"},
	},
	domain.RoleGuest: {
		"shop": {"read"},
	},
}

var knownResources = map[string]bool{
	"me":      true,
	"user":    true,
	"shop":    true,
	"cart":    true,
	"order":   true,
	"payment": true,
}

var knownActions = map[string]bool{
	"read":   true,
	"create": true,
	"update": true,
	"delete": true,
}

// ValidatePermissionTable verifica la tabla contra los recursos y acciones
// conocidos; un typo debe abortar el arranque, no otorgar cero permisos en
// silencio.
func ValidatePermissionTable() error {
	for role, resources := range rolePermissions {
		for resource, actions := range resources {
			if !knownResources[resource] {
				return fmt.Errorf("permission table: role %q references unknown resource %q", role, resource)
			}
			for _, action := range actions {
				if !knownActions[action] {
					return fmt.Errorf("permission table: role %q resource %q references unknown action %q", role, resource, action)
				}
			}
		}
	}
	return nil
}

const scopeCacheTTL = 60 * time.Second

// ScopeResolver resuelve los scopes "recurso:accion" de un rol, con cache
// corto. El cache es sólo una optimización: recomputar es idempotente.
type ScopeResolver struct {
	cache *expirable.LRU[string, []string]
}

func NewScopeResolver() *ScopeResolver {
	return &ScopeResolver{
		cache: expirable.NewLRU[string, []string](16, nil, scopeCacheTTL),
	}
}

// ScopesFor devuelve la secuencia ordenada de scopes del rol.
// Un rol desconocido produce una secuencia vacía, no un error.
func (r *ScopeResolver) ScopesFor(role domain.Role) []string {
	if cached, ok := r.cache.Get(string(role)); ok {
		return cached
	}
	scopes := computeScopes(role)
	r.cache.Add(string(role), scopes)
	return scopes
}

// GuestScopes devuelve los scopes asignados a llamadores sin credencial.
func (r *ScopeResolver) GuestScopes() []string {
	return r.ScopesFor(domain.RoleGuest)
}

func computeScopes(role domain.Role) []string {
	resources, ok := rolePermissions[role]
	if !ok {
		return []string{}
	}
	names := make([]string, 0, len(resources))
	for resource := range resources {
		names = append(names, resource)
	}
	sort.Strings(names)

	var scopes []string
	for _, resource := range names {
		for _, action := range resources[resource] {
			scopes = append(scopes, resource+":"+action)
		}
	}
	return scopes
}

// HasScope indica si el scope requerido está presente en el conjunto dado.
func HasScope(scopes []string, required string) bool {
	for _, s := range scopes {
		if s == required {
			return true
		}
	}
	return false
}
