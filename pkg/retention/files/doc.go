// Package files attaches policy terms to individual files and folders.
package files
