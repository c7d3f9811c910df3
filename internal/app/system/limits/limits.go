// internal/app/system/limits/limits.go
package limits

// MaxJSONBody bounds any API request body.
const MaxJSONBody = 1 << 20 // 1 MB
